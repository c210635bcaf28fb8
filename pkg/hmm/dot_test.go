package hmm_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSameParameters(t *testing.T, want, got *hmm.Model) {
	t.Helper()
	require.Equal(t, want.NumStates(), got.NumStates())
	for i := 0; i < want.NumStates(); i++ {
		assert.Equal(t, want.StateLabel(i), got.StateLabel(i))
		assert.Equal(t, want.StateArity(i), got.StateArity(i))
		assert.Equal(t, want.StartProb(i), got.StartProb(i))
		assert.Equal(t, want.EmissionKeys(i), got.EmissionKeys(i))
		for _, key := range want.EmissionKeys(i) {
			assert.Equal(t, want.EmissionProb(i, key), got.EmissionProb(i, key))
		}
		for j := 0; j < want.NumStates(); j++ {
			assert.Equal(t, want.TransitionProb(i, j), got.TransitionProb(i, j))
		}
	}
}

func TestDotRoundTrip(t *testing.T) {
	t.Run("success codon model", func(t *testing.T) {
		m := codonModel(t)
		require.NoError(t, m.Finalize())

		var buf bytes.Buffer
		require.NoError(t, m.WriteDot(&buf))

		text := buf.String()
		assert.True(t, strings.HasPrefix(text, "digraph foo {\n"))
		assert.True(t, strings.HasSuffix(text, "}\n"))
		assert.Contains(t, text, `C[label="AAA: 1\n"];`)
		assert.Contains(t, text, `N -> C [label="0.05"];`)

		got, err := hmm.ReadDot(&buf)
		require.NoError(t, err)
		assert.False(t, got.IsFinalized())
		assertSameParameters(t, m, got)
		require.NoError(t, got.Finalize())
	})

	t.Run("success awkward values and quoted labels", func(t *testing.T) {
		n := mustState(t, "non coding", 1)
		c := mustState(t, "C", 3)
		m, err := hmm.NewModel([]hmm.State{n, c})
		require.NoError(t, err)

		third := 1.0 / 3
		require.NoError(t, m.SetEmissionDistribution("non coding", []string{"A", "C", "G"}, []float64{third, third, 1 - 2*third}))
		require.NoError(t, m.SetEmissionDistribution("C", []string{"ATG", "TAA"}, []float64{0.1, 0.9}))
		require.NoError(t, m.SetStartProbByLabel("non coding", 0.7))
		require.NoError(t, m.SetStartProbByLabel("C", 0.3))
		require.NoError(t, m.SetTransitionProbByLabel("non coding", "non coding", 1-third))
		require.NoError(t, m.SetTransitionProbByLabel("non coding", "C", third))
		require.NoError(t, m.SetTransitionProbByLabel("C", "non coding", 1))
		require.NoError(t, m.Finalize())

		var buf bytes.Buffer
		require.NoError(t, m.WriteDot(&buf))
		assert.Contains(t, buf.String(), `"non coding" -> C`)

		got, err := hmm.ReadDot(&buf)
		require.NoError(t, err)
		assertSameParameters(t, m, got)
	})

	t.Run("error writing an unfinalized model", func(t *testing.T) {
		m := codonModel(t)
		var buf bytes.Buffer
		assert.True(t, errors.Is(m.WriteDot(&buf), hmm.ErrValidation))
	})
}

func TestReadDot(t *testing.T) {
	t.Run("success shape attribute and blank lines", func(t *testing.T) {
		text := "digraph foo {\n" +
			`N[label="A: 0.5\nC: 0.5\n", shape=box];` + "\n" +
			"\n" +
			`N -> N [label="1"];` + "\n" +
			"}\n"
		m, err := hmm.ReadDot(strings.NewReader(text))
		require.NoError(t, err)
		assert.Equal(t, 1, m.NumStates())
		assert.Equal(t, 1, m.StateArity(0))
		assert.Equal(t, 0.5, m.EmissionProb(0, "C"))
		assert.Equal(t, 1.0, m.TransitionProb(0, 0))
		assert.Equal(t, 0.0, m.StartProb(0))
	})

	t.Run("success arity inferred from first key", func(t *testing.T) {
		text := "digraph foo {\n" +
			`C[label="ATG: 1\n"];` + "\n" +
			`C -> C [label="1"];` + "\n" +
			"}\n"
		m, err := hmm.ReadDot(strings.NewReader(text))
		require.NoError(t, err)
		assert.Equal(t, 3, m.StateArity(0))
	})

	errorCases := []struct {
		name string
		text string
	}{
		{"unrecognized line", "digraph foo {\nhello world\n}\n"},
		{"missing open", `N[label="A: 1\n"];` + "\n}\n"},
		{"missing close", "digraph foo {\n" + `N[label="A: 1\n"];` + "\n"},
		{"edge to unknown state", "digraph foo {\n" + `N[label="A: 1\n"];` + "\n" + `N -> X [label="1"];` + "\n}\n"},
		{"bad probability", "digraph foo {\n" + `N[label="A: abc\n"];` + "\n}\n"},
		{"mixed key lengths", "digraph foo {\n" + `N[label="A: 0.5\nAC: 0.5\n"];` + "\n}\n"},
		{"no emissions", "digraph foo {\n" + `N[label=""];` + "\n}\n"},
		{"duplicate state", "digraph foo {\n" + `N[label="A: 1\n"];` + "\n" + `N[label="A: 1\n"];` + "\n}\n"},
		{"unknown attribute", "digraph foo {\n" + `N[label="A: 1\n", color=red];` + "\n}\n"},
	}
	for _, tc := range errorCases {
		t.Run("error "+tc.name, func(t *testing.T) {
			_, err := hmm.ReadDot(strings.NewReader(tc.text))
			assert.True(t, errors.Is(err, hmm.ErrFormat), "got %v", err)
		})
	}
}
