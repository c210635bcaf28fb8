package training

import (
	"log"

	"github.com/lintang-b-s/codonhmm/pkg/engine/inference"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
)

// TrainByViterbi. hard-assignment training: decode every sequence with the current parameters and
// count the decoded paths as if they were labels. returns the sum of the trace log scores.
// same preconditions as TrainByBaumWelch.
func TrainByViterbi(model TrainableModel, seqs []string, cfg Config) (float64, error) {
	if model.IsFinalized() {
		return 0, hmm.NewErrorf(hmm.ErrConfiguration, "viterbi training needs an unlocked model")
	}
	if len(seqs) == 0 {
		return 0, hmm.NewErrorf(hmm.ErrConfiguration, "no training sequences")
	}
	if err := model.Finalize(); err != nil {
		return 0, err
	}

	decoded := make([]string, 0, len(seqs))
	paths := make([][]string, 0, len(seqs))
	score := 0.0
	for i, seq := range seqs {
		trace, err := inference.Viterbi(seq, model)
		if err != nil {
			model.Unlock()
			return 0, err
		}
		if !trace.Found() {
			log.Printf("viterbi training: skipping sequence %d, no path explains it", i)
			continue
		}
		decoded = append(decoded, seq)
		paths = append(paths, model.ExpandPath(trace.States))
		score += trace.LogProb
	}

	model.Unlock()
	if len(decoded) == 0 {
		return 0, hmm.NewErrorf(hmm.ErrValidation, "no sequence has a viterbi path")
	}

	if err := TrainByCounting(model, decoded, paths, cfg); err != nil {
		return 0, err
	}
	return score, nil
}
