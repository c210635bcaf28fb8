package hmm

import (
	"sort"
	"strings"
)

// State. hidden state that emits a group of exactly arity symbols per visit.
// arity > 1 is used for motif-width states such as codons.
type State struct {
	label     string
	arity     int
	emissions map[string]float64 // sparse, missing key = probability 0
}

func NewState(label string, arity int) (State, error) {
	if arity < 1 {
		return State{}, NewErrorf(ErrConfiguration, "state %q: arity must be at least 1, got %d", label, arity)
	}
	return State{
		label:     label,
		arity:     arity,
		emissions: make(map[string]float64),
	}, nil
}

func (s State) Label() string {
	return s.label
}

func (s State) Arity() int {
	return s.arity
}

func (s *State) setEmissionProb(obs string, prob float64) error {
	if len(obs) != s.arity {
		return NewErrorf(ErrConfiguration, "state %q: observation %q has length %d, want %d", s.label, obs, len(obs), s.arity)
	}
	if _, ok := s.emissions[obs]; !ok {
		// obs is often a substring of a whole genome, don't keep the genome alive through the map key.
		obs = strings.Clone(obs)
	}
	s.emissions[obs] = prob
	return nil
}

func (s State) emissionProb(obs string) float64 {
	if len(obs) != s.arity {
		return 0
	}
	return s.emissions[obs]
}

func (s State) emissionSum() float64 {
	sum := 0.0
	for _, key := range s.sortedKeys() {
		sum += s.emissions[key]
	}
	return sum
}

func (s State) sortedKeys() []string {
	keys := make([]string, 0, len(s.emissions))
	for key := range s.emissions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s State) clone() State {
	emissions := make(map[string]float64, len(s.emissions))
	for k, v := range s.emissions {
		emissions[k] = v
	}
	return State{label: s.label, arity: s.arity, emissions: emissions}
}
