package training

import (
	"fmt"

	"github.com/lintang-b-s/codonhmm/pkg/hmm"
)

// TrainByCounting. supervised training from labelled sequences. labels[i][j] is the label of the
// state emitting seqs[i][j], so a visit of a state with arity d shows up as d equal labels.
// counts are normalized per row and written over every parameter of the model. the model must be
// unlocked and stays unlocked.
func TrainByCounting(model TrainableModel, seqs []string, labels [][]string, cfg Config) error {
	if model.IsFinalized() {
		return hmm.NewErrorf(hmm.ErrConfiguration, "counting trainer needs an unlocked model")
	}
	if len(seqs) != len(labels) {
		return hmm.NewErrorf(hmm.ErrConfiguration, "got %d sequences and %d label paths", len(seqs), len(labels))
	}
	if len(seqs) == 0 {
		return hmm.NewErrorf(hmm.ErrConfiguration, "no training sequences")
	}

	c := newCounts(model.NumStates())
	for i := range seqs {
		if err := c.countPath(model, seqs[i], labels[i]); err != nil {
			return fmt.Errorf("sequence %d: %w", i, err)
		}
	}

	return c.write(model, cfg)
}

// countPath. walk one label path visit by visit.
func (c *counts) countPath(model TrainableModel, seq string, path []string) error {
	if len(path) == 0 {
		return hmm.NewErrorf(hmm.ErrConfiguration, "empty label path")
	}
	if len(path) != len(seq) {
		return hmm.NewErrorf(hmm.ErrConfiguration, "label path has length %d, sequence has length %d", len(path), len(seq))
	}

	prev := -1
	for pos := 0; pos < len(path); {
		label := path[pos]
		state, err := model.StateIndex(label)
		if err != nil {
			return err
		}

		d := model.StateArity(state)
		if pos+d > len(path) {
			return hmm.NewErrorf(hmm.ErrConfiguration, "visit of %q at position %d is truncated", label, pos)
		}
		for k := pos + 1; k < pos+d; k++ {
			if path[k] != label {
				return hmm.NewErrorf(hmm.ErrConfiguration, "visit of %q at position %d is interrupted by %q", label, pos, path[k])
			}
		}

		c.addEmission(state, seq[pos:pos+d], 1)
		if prev < 0 {
			c.start[state]++
		} else {
			c.addTransition(prev, state, 1)
		}

		prev = state
		pos += d
	}

	c.sequences++
	return nil
}
