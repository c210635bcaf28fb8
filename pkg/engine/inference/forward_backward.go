package inference

import (
	"math"

	"github.com/lintang-b-s/codonhmm/pkg/datastructure"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"gonum.org/v1/gonum/floats"
)

// ForwardBackwardResult. scaled forward and backward tables of one sequence.
//
// Forward(i, s) is the probability that a visit of s ends at position i given x[0..i], divided by
// the product of Scales[0..i]. Backward(i, s) is the probability of x[i+1..L-1] given that a visit
// of s ends at i, divided by the product of Scales[i+1..L-1].
type ForwardBackwardResult struct {
	Scales   []float64
	Forward  *datastructure.Table[float64]
	Backward *datastructure.Table[float64]

	finalMass float64 // sum of the last forward column, 1 unless the sequence is impossible
}

// ForwardBackward. scaled forward-backward over a sequence for a model whose states may consume
// several symbols per visit. a state with arity d at position i jumps back d positions, so every
// transition into it spans the scaling factors of the d positions it emits.
func ForwardBackward(seq string, model HMM) (*ForwardBackwardResult, error) {
	if !model.IsFinalized() {
		return nil, hmm.NewErrorf(hmm.ErrValidation, "model should be finalized")
	}
	if len(seq) == 0 {
		return nil, hmm.NewErrorf(hmm.ErrConfiguration, "empty sequence")
	}

	L := len(seq)
	N := model.NumStates()

	scales := make([]float64, L)
	forward := datastructure.NewTable(L, N, 0.0)

	for i := 0; i < L; i++ {
		col := forward.Row(i)
		for s := 0; s < N; s++ {
			d := model.StateArity(s)
			if i < d-1 {
				continue
			}

			mass := 0.0
			if i == d-1 {
				// visit of s starting the sequence
				mass = model.StartProb(s)
			} else {
				for _, k := range model.IncomingStates(s) {
					mass += forward.At(i-d, k) * model.TransitionProb(k, s)
				}
			}
			if mass == 0 {
				continue
			}
			for k := 1; k < d; k++ {
				mass /= scales[i-k]
			}
			col[s] = mass * model.EmissionProb(s, seq[i-d+1:i+1])
		}

		c := floats.Sum(col)
		if c == 0 {
			// no visit can end here, keep the column at zero and don't rescale
			c = 1
		}
		scales[i] = c
		floats.Scale(1/c, col)
	}

	backward := datastructure.NewTable(L, N, 0.0)
	last := backward.Row(L - 1)
	for s := range last {
		last[s] = 1
	}

	for i := L - 2; i >= 0; i-- {
		for s := 0; s < N; s++ {
			prob := 0.0
			for _, next := range model.OutgoingStates(s) {
				d := model.StateArity(next)
				if i+d > L-1 {
					continue
				}
				val := backward.At(i+d, next) * model.TransitionProb(s, next) * model.EmissionProb(next, seq[i+1:i+d+1])
				if val == 0 {
					continue
				}
				for k := 1; k <= d; k++ {
					val /= scales[i+k]
				}
				prob += val
			}
			backward.Set(i, s, prob)
		}
	}

	return &ForwardBackwardResult{
		Scales:    scales,
		Forward:   forward,
		Backward:  backward,
		finalMass: floats.Sum(forward.Row(L - 1)),
	}, nil
}

// Impossible. true when no state path explains the sequence.
func (r *ForwardBackwardResult) Impossible() bool {
	return r.finalMass == 0
}

// LogLikelihood. natural log of P(sequence | model), -Inf when no path explains the sequence.
func (r *ForwardBackwardResult) LogLikelihood() float64 {
	if r.finalMass == 0 {
		return math.Inf(-1)
	}
	ll := math.Log(r.finalMass)
	for _, c := range r.Scales {
		ll += math.Log(c)
	}
	return ll
}

// Posterior. probability that a visit of state ends at position i given the whole sequence.
func (r *ForwardBackwardResult) Posterior(i, state int) float64 {
	if r.finalMass == 0 {
		return 0
	}
	return r.Forward.At(i, state) * r.Backward.At(i, state) / r.finalMass
}

// TransitionPosterior. probability that a visit of from ends at position i and is followed by a
// visit of to covering the next StateArity(to) symbols, given the whole sequence.
func (r *ForwardBackwardResult) TransitionPosterior(seq string, model HMM, i, from, to int) float64 {
	if r.finalMass == 0 {
		return 0
	}
	d := model.StateArity(to)
	if i+d > len(seq)-1 {
		return 0
	}
	val := r.Forward.At(i, from) * model.TransitionProb(from, to) * model.EmissionProb(to, seq[i+1:i+d+1]) * r.Backward.At(i+d, to)
	if val == 0 {
		return 0
	}
	for k := 1; k <= d; k++ {
		val /= r.Scales[i+k]
	}
	return val / r.finalMass
}
