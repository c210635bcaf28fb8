package hmm

import (
	"strings"

	"golang.org/x/exp/rand"
)

// Sample. draw a path of the given number of visits from a finalized model. returns the emitted
// symbols and the expanded label path (one label per symbol).
func Sample(m *Model, visits int, rng *rand.Rand) (string, []string, error) {
	if !m.finalized {
		return "", nil, NewErrorf(ErrValidation, "model should be finalized before sampling")
	}
	if visits < 1 {
		return "", nil, NewErrorf(ErrConfiguration, "number of visits must be positive, got %d", visits)
	}

	keys := make([][]string, m.NumStates())
	for i := range m.states {
		keys[i] = m.states[i].sortedKeys()
	}

	var sb strings.Builder
	path := make([]int, 0, visits)

	state, ok := pick(rng, m.NumStates(), func(i int) float64 { return m.start[i] })
	if !ok {
		return "", nil, NewErrorf(ErrValidation, "start probabilities are all zero")
	}
	for v := 0; v < visits; v++ {
		if v > 0 {
			from := state
			state, ok = pick(rng, len(m.outgoing[from]), func(i int) float64 {
				return m.transitions.At(from, m.outgoing[from][i])
			})
			if !ok {
				return "", nil, NewErrorf(ErrValidation, "state %q has no outgoing transition", m.states[from].label)
			}
			state = m.outgoing[from][state]
		}

		stateKeys := keys[state]
		k, _ := pick(rng, len(stateKeys), func(i int) float64 { return m.states[state].emissions[stateKeys[i]] })
		sb.WriteString(stateKeys[k])
		path = append(path, state)
	}

	return sb.String(), m.ExpandPath(path), nil
}

// pick. index drawn proportionally to weight(i), false if every weight is zero.
func pick(rng *rand.Rand, n int, weight func(i int) float64) (int, bool) {
	total := 0.0
	for i := 0; i < n; i++ {
		total += weight(i)
	}
	if total <= 0 {
		return -1, false
	}
	u := rng.Float64() * total
	last := -1
	for i := 0; i < n; i++ {
		w := weight(i)
		if w <= 0 {
			continue
		}
		last = i
		if u < w {
			return i, true
		}
		u -= w
	}
	return last, true
}
