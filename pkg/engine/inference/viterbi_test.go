package inference_test

import (
	"errors"
	"math"
	"testing"

	"github.com/lintang-b-s/codonhmm/pkg/engine/inference"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViterbi(t *testing.T) {
	t.Run("success codon at the end", func(t *testing.T) {
		m := codonModel(t)
		trace, err := inference.Viterbi("AAAAAA", m)
		require.NoError(t, err)
		require.True(t, trace.Found())

		assert.Equal(t, []string{"N", "N", "N", "C"}, labels(m, trace.States))
		want := 3*math.Log(0.25) + 2*math.Log(0.95) + math.Log(0.05)
		assert.InDelta(t, want, trace.LogProb, 1e-9)
		assert.Equal(t, []string{"N", "N", "N", "C", "C", "C"}, m.ExpandPath(trace.States))

		assert.Equal(t, []inference.Segment{
			{State: 0, Start: 0, End: 1},
			{State: 0, Start: 1, End: 2},
			{State: 0, Start: 2, End: 3},
			{State: 1, Start: 3, End: 6},
		}, trace.Segments(m))
	})

	t.Run("success matches path enumeration", func(t *testing.T) {
		m := mixedModel(t)
		for _, seq := range []string{"A", "AAA", "ACGTTT", "GCAAAAC", "TTTACGAAAG", "AAAAAAAAA"} {
			trace, err := inference.Viterbi(seq, m)
			require.NoError(t, err)

			wantPath, wantLog := bruteForceBest(m, seq)
			assert.Equal(t, wantPath, trace.States, seq)
			assert.InDelta(t, wantLog, trace.LogProb, 1e-9, seq)
		}
	})

	t.Run("success viterbi score bounded by likelihood", func(t *testing.T) {
		m := mixedModel(t)
		seq := "TTTACGAAAGCAACG"
		trace, err := inference.Viterbi(seq, m)
		require.NoError(t, err)
		res, err := inference.ForwardBackward(seq, m)
		require.NoError(t, err)
		assert.LessOrEqual(t, trace.LogProb, res.LogLikelihood())
	})

	t.Run("success no path", func(t *testing.T) {
		m := newModel(t, map[string]int{"N": 1}, []string{"N"})
		require.NoError(t, m.SetEmissionProbByLabel("N", "A", 1))
		require.NoError(t, m.SetStartProbByLabel("N", 1))
		require.NoError(t, m.SetTransitionProbByLabel("N", "N", 1))
		require.NoError(t, m.Finalize())

		trace, err := inference.Viterbi("AAC", m)
		require.NoError(t, err)
		assert.False(t, trace.Found())
		assert.Empty(t, trace.States)
		assert.True(t, math.IsInf(trace.LogProb, -1))
	})

	t.Run("success sequence shorter than every arity", func(t *testing.T) {
		m := newModel(t, map[string]int{"C": 3}, []string{"C"})
		require.NoError(t, m.SetEmissionProbByLabel("C", "AAA", 1))
		require.NoError(t, m.SetStartProbByLabel("C", 1))
		require.NoError(t, m.SetTransitionProbByLabel("C", "C", 1))
		require.NoError(t, m.Finalize())

		trace, err := inference.Viterbi("AA", m)
		require.NoError(t, err)
		assert.False(t, trace.Found())
	})

	t.Run("error empty sequence", func(t *testing.T) {
		m := codonModel(t)
		_, err := inference.Viterbi("", m)
		assert.True(t, errors.Is(err, hmm.ErrConfiguration))
	})

	t.Run("error unfinalized model", func(t *testing.T) {
		m := codonModel(t)
		m.Unlock()
		_, err := inference.Viterbi("AAA", m)
		assert.True(t, errors.Is(err, hmm.ErrValidation))
	})
}

func labels(m *hmm.Model, states []int) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = m.StateLabel(s)
	}
	return out
}
