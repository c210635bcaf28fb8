package training_test

import (
	"bytes"
	"testing"

	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"github.com/stretchr/testify/require"
)

var nucleotides = []string{"A", "C", "G", "T"}

func newModel(t *testing.T, labels []string, arities []int) *hmm.Model {
	t.Helper()
	states := make([]hmm.State, len(labels))
	for i, label := range labels {
		s, err := hmm.NewState(label, arities[i])
		require.NoError(t, err)
		states[i] = s
	}
	m, err := hmm.NewModel(states)
	require.NoError(t, err)
	return m
}

// codonModel. N emits single bases uniformly, C emits only the codon AAA.
func codonModel(t *testing.T) *hmm.Model {
	t.Helper()
	m := newModel(t, []string{"N", "C"}, []int{1, 3})
	require.NoError(t, m.SetEmissionDistribution("N", nucleotides, []float64{0.25, 0.25, 0.25, 0.25}))
	require.NoError(t, m.SetEmissionProbByLabel("C", "AAA", 1))
	require.NoError(t, m.SetStartProbByLabel("N", 1))
	require.NoError(t, m.SetTransitionProbByLabel("N", "N", 0.95))
	require.NoError(t, m.SetTransitionProbByLabel("N", "C", 0.05))
	require.NoError(t, m.SetTransitionProbByLabel("C", "C", 0.95))
	require.NoError(t, m.SetTransitionProbByLabel("C", "N", 0.05))
	return m
}

// dinucleotideModel. H prefers A/T, L prefers C/G.
func dinucleotideModel(t *testing.T) *hmm.Model {
	t.Helper()
	m := newModel(t, []string{"H", "L"}, []int{1, 1})
	require.NoError(t, m.SetEmissionDistribution("H", nucleotides, []float64{0.4, 0.1, 0.1, 0.4}))
	require.NoError(t, m.SetEmissionDistribution("L", nucleotides, []float64{0.1, 0.4, 0.4, 0.1}))
	require.NoError(t, m.SetTransitionProbByLabel("H", "H", 0.9))
	require.NoError(t, m.SetTransitionProbByLabel("H", "L", 0.1))
	require.NoError(t, m.SetTransitionProbByLabel("L", "H", 0.2))
	require.NoError(t, m.SetTransitionProbByLabel("L", "L", 0.8))
	require.NoError(t, m.SetStartProbByLabel("H", 0.6))
	require.NoError(t, m.SetStartProbByLabel("L", 0.4))
	return m
}

// mixedModel. single bases and codons, both can start.
func mixedModel(t *testing.T, emit []float64, stay float64) *hmm.Model {
	t.Helper()
	m := newModel(t, []string{"N", "C"}, []int{1, 3})
	require.NoError(t, m.SetEmissionDistribution("N", nucleotides, emit))
	require.NoError(t, m.SetEmissionDistribution("C", []string{"AAA", "ACG", "TTT", "GCA"}, []float64{0.4, 0.3, 0.2, 0.1}))
	require.NoError(t, m.SetStartProbByLabel("N", 0.7))
	require.NoError(t, m.SetStartProbByLabel("C", 0.3))
	require.NoError(t, m.SetTransitionProbByLabel("N", "N", stay))
	require.NoError(t, m.SetTransitionProbByLabel("N", "C", 1-stay))
	require.NoError(t, m.SetTransitionProbByLabel("C", "C", 0.6))
	require.NoError(t, m.SetTransitionProbByLabel("C", "N", 0.4))
	return m
}

func dot(t *testing.T, m *hmm.Model) string {
	t.Helper()
	require.NoError(t, m.Finalize())
	defer m.Unlock()
	var buf bytes.Buffer
	require.NoError(t, m.WriteDot(&buf))
	return buf.String()
}

func prob(t *testing.T, m *hmm.Model, from, to string) float64 {
	t.Helper()
	i, err := m.StateIndex(from)
	require.NoError(t, err)
	j, err := m.StateIndex(to)
	require.NoError(t, err)
	return m.TransitionProb(i, j)
}

func emission(t *testing.T, m *hmm.Model, state, obs string) float64 {
	t.Helper()
	i, err := m.StateIndex(state)
	require.NoError(t, err)
	return m.EmissionProb(i, obs)
}

func start(t *testing.T, m *hmm.Model, state string) float64 {
	t.Helper()
	i, err := m.StateIndex(state)
	require.NoError(t, err)
	return m.StartProb(i)
}
