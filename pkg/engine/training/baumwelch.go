package training

import (
	"log"

	"github.com/lintang-b-s/codonhmm/pkg/engine/inference"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
)

// TrainByBaumWelch. one expectation-maximization step over a batch of unlabelled sequences.
// the model must arrive unlocked, it is finalized for the expectation step and unlocked again
// before the new parameters are written. returns the batch log-likelihood under the parameters
// the model had on entry. sequences no path can explain are skipped.
func TrainByBaumWelch(model TrainableModel, seqs []string, cfg Config) (float64, error) {
	if model.IsFinalized() {
		return 0, hmm.NewErrorf(hmm.ErrConfiguration, "baum-welch needs an unlocked model")
	}
	if len(seqs) == 0 {
		return 0, hmm.NewErrorf(hmm.ErrConfiguration, "no training sequences")
	}
	if err := model.Finalize(); err != nil {
		return 0, err
	}

	c := newCounts(model.NumStates())
	logLik := 0.0
	for i, seq := range seqs {
		res, err := inference.ForwardBackward(seq, model)
		if err != nil {
			model.Unlock()
			return 0, err
		}
		if res.Impossible() {
			log.Printf("baum-welch: skipping sequence %d, no path explains it", i)
			continue
		}
		c.addExpected(model, seq, res)
		logLik += res.LogLikelihood()
	}

	model.Unlock()
	if c.sequences == 0 {
		return 0, hmm.NewErrorf(hmm.ErrValidation, "no sequence has positive likelihood")
	}

	if err := c.write(model, cfg); err != nil {
		return 0, err
	}
	return logLik, nil
}

// addExpected. add the posterior visit, transition and start counts of one sequence.
func (c *counts) addExpected(model TrainableModel, seq string, res *inference.ForwardBackwardResult) {
	L := len(seq)
	N := model.NumStates()

	for e := 0; e < L; e++ {
		for k := 0; k < N; k++ {
			d := model.StateArity(k)
			if e < d-1 {
				continue
			}
			gamma := res.Posterior(e, k)
			if gamma == 0 {
				continue
			}
			c.addEmission(k, seq[e-d+1:e+1], gamma)
			if e == d-1 {
				// a visit ending at d-1 has no room for a predecessor
				c.start[k] += gamma
			}
		}
	}

	// predecessor j ends at i
	for i := 0; i < L-1; i++ {
		for j := 0; j < N; j++ {
			if res.Forward.At(i, j) == 0 {
				continue
			}
			for _, k := range model.OutgoingStates(j) {
				if xi := res.TransitionPosterior(seq, model, i, j, k); xi > 0 {
					c.addTransition(j, k, xi)
				}
			}
		}
	}

	c.sequences++
}
