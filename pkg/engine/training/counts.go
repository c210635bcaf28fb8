package training

import (
	"sort"
	"strings"

	"github.com/lintang-b-s/codonhmm/pkg/datastructure"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"gonum.org/v1/gonum/floats"
)

// counts. expected (or observed) transition, emission and start counts of one training batch.
type counts struct {
	transitions *datastructure.Table[float64]
	emissions   []map[string]float64
	start       []float64
	sequences   int
}

func newCounts(n int) *counts {
	c := &counts{
		transitions: datastructure.NewTable(n, n, 0.0),
		emissions:   make([]map[string]float64, n),
		start:       make([]float64, n),
	}
	for i := range c.emissions {
		c.emissions[i] = make(map[string]float64)
	}
	return c
}

func (c *counts) addEmission(state int, obs string, val float64) {
	if _, ok := c.emissions[state][obs]; ok {
		c.emissions[state][obs] += val
		return
	}
	// obs usually points into a whole chromosome
	c.emissions[state][strings.Clone(obs)] = val
}

func (c *counts) addTransition(from, to int, val float64) {
	c.transitions.Set(from, to, c.transitions.At(from, to)+val)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// write. reset model and store the normalized counts. model must be unlocked. empty rows are
// checked before anything is written so a failing policy leaves the model untouched.
func (c *counts) write(model TrainableModel, cfg Config) error {
	n := model.NumStates()

	emissionKeys := make([][]string, n)
	emissionSums := make([]float64, n)
	transitionSums := make([]float64, n)
	for s := 0; s < n; s++ {
		emissionKeys[s] = sortedKeys(c.emissions[s])
		for _, key := range emissionKeys[s] {
			emissionSums[s] += c.emissions[s][key]
		}
		transitionSums[s] = floats.Sum(c.transitions.Row(s))

		if cfg.EmptyRows != FailOnEmptyRow {
			continue
		}
		if transitionSums[s] == 0 {
			return hmm.NewErrorf(hmm.ErrConfiguration, "state %q: no transition counts", model.StateLabel(s))
		}
		if emissionSums[s] == 0 {
			return hmm.NewErrorf(hmm.ErrConfiguration, "state %q: no emission counts", model.StateLabel(s))
		}
	}

	if err := model.Reset(); err != nil {
		return err
	}

	for s := 0; s < n; s++ {
		if transitionSums[s] > 0 {
			for to, v := range c.transitions.Row(s) {
				if v == 0 {
					continue
				}
				if err := model.SetTransitionProb(s, to, v/transitionSums[s]); err != nil {
					return err
				}
			}
		} else if cfg.EmptyRows == UniformRow {
			for to := 0; to < n; to++ {
				if err := model.SetTransitionProb(s, to, 1/float64(n)); err != nil {
					return err
				}
			}
		}

		if emissionSums[s] > 0 {
			for _, key := range emissionKeys[s] {
				if err := model.SetEmissionProb(s, key, c.emissions[s][key]/emissionSums[s]); err != nil {
					return err
				}
			}
		} else if cfg.EmptyRows == UniformRow {
			all := words(cfg.Alphabet, model.StateArity(s))
			for _, key := range all {
				if err := model.SetEmissionProb(s, key, 1/float64(len(all))); err != nil {
					return err
				}
			}
		}
	}

	if c.sequences == 0 {
		if cfg.EmptyRows == UniformRow {
			for s := 0; s < n; s++ {
				if err := model.SetStartProb(s, 1/float64(n)); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for s, v := range c.start {
		if v == 0 {
			continue
		}
		if err := model.SetStartProb(s, v/float64(c.sequences)); err != nil {
			return err
		}
	}
	return nil
}
