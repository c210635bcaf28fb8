package inference_test

import (
	"math"
	"testing"

	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"github.com/stretchr/testify/require"
)

var nucleotides = []string{"A", "C", "G", "T"}

func newModel(t *testing.T, arities map[string]int, order []string) *hmm.Model {
	t.Helper()
	states := make([]hmm.State, 0, len(order))
	for _, label := range order {
		s, err := hmm.NewState(label, arities[label])
		require.NoError(t, err)
		states = append(states, s)
	}
	m, err := hmm.NewModel(states)
	require.NoError(t, err)
	return m
}

// codonModel. N emits single bases uniformly, C emits only the codon AAA.
func codonModel(t *testing.T) *hmm.Model {
	t.Helper()
	m := newModel(t, map[string]int{"N": 1, "C": 3}, []string{"N", "C"})
	require.NoError(t, m.SetEmissionDistribution("N", nucleotides, []float64{0.25, 0.25, 0.25, 0.25}))
	require.NoError(t, m.SetEmissionProbByLabel("C", "AAA", 1))
	require.NoError(t, m.SetStartProbByLabel("N", 1))
	require.NoError(t, m.SetTransitionProbByLabel("N", "N", 0.95))
	require.NoError(t, m.SetTransitionProbByLabel("N", "C", 0.05))
	require.NoError(t, m.SetTransitionProbByLabel("C", "C", 0.95))
	require.NoError(t, m.SetTransitionProbByLabel("C", "N", 0.05))
	require.NoError(t, m.Finalize())
	return m
}

// mixedModel. both states can start, C emits a handful of codons.
func mixedModel(t *testing.T) *hmm.Model {
	t.Helper()
	m := newModel(t, map[string]int{"N": 1, "C": 3}, []string{"N", "C"})
	require.NoError(t, m.SetEmissionDistribution("N", nucleotides, []float64{0.4, 0.1, 0.2, 0.3}))
	require.NoError(t, m.SetEmissionDistribution("C", []string{"AAA", "ACG", "TTT", "GCA"}, []float64{0.4, 0.3, 0.2, 0.1}))
	require.NoError(t, m.SetStartProbByLabel("N", 0.7))
	require.NoError(t, m.SetStartProbByLabel("C", 0.3))
	require.NoError(t, m.SetTransitionProbByLabel("N", "N", 0.9))
	require.NoError(t, m.SetTransitionProbByLabel("N", "C", 0.1))
	require.NoError(t, m.SetTransitionProbByLabel("C", "C", 0.6))
	require.NoError(t, m.SetTransitionProbByLabel("C", "N", 0.4))
	require.NoError(t, m.Finalize())
	return m
}

// enumeratePaths. calls fn with every visit sequence whose arities cover seq exactly and its
// joint probability.
func enumeratePaths(m *hmm.Model, seq string, fn func(path []int, prob float64)) {
	var walk func(pos int, path []int, prob float64)
	walk = func(pos int, path []int, prob float64) {
		if pos == len(seq) {
			fn(append([]int(nil), path...), prob)
			return
		}
		for s := 0; s < m.NumStates(); s++ {
			d := m.StateArity(s)
			if pos+d > len(seq) {
				continue
			}
			p := prob * m.EmissionProb(s, seq[pos:pos+d])
			if len(path) == 0 {
				p *= m.StartProb(s)
			} else {
				p *= m.TransitionProb(path[len(path)-1], s)
			}
			if p == 0 {
				continue
			}
			walk(pos+d, append(path, s), p)
		}
	}
	walk(0, nil, 1)
}

func bruteForceLikelihood(m *hmm.Model, seq string) float64 {
	total := 0.0
	enumeratePaths(m, seq, func(_ []int, prob float64) {
		total += prob
	})
	return total
}

func bruteForceBest(m *hmm.Model, seq string) ([]int, float64) {
	var best []int
	bestLog := math.Inf(-1)
	enumeratePaths(m, seq, func(path []int, prob float64) {
		if lp := math.Log(prob); lp > bestLog {
			best, bestLog = path, lp
		}
	})
	return best, bestLog
}
