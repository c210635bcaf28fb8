package hmm

import (
	"math"

	"github.com/lintang-b-s/codonhmm/pkg/datastructure"
	"gonum.org/v1/gonum/floats"
)

// Epsilon. tolerance for emission and transition sums at finalize time.
const Epsilon = 1e-6

// Model. hidden markov model whose states may consume more than one symbol per visit.
//
// while unfinalized the parameters can be changed (trainers write directly into the tables).
// Finalize validates the parameters, derives the incoming/outgoing adjacency and makes the model
// inference-ready. Unlock reverts that. a Model is not safe for concurrent mutation.
type Model struct {
	states      []State
	transitions *datastructure.Table[float64]
	start       []float64
	stateLabels map[string]int

	incoming [][]int
	outgoing [][]int

	finalized bool
}

func NewModel(states []State) (*Model, error) {
	m := &Model{
		states:      make([]State, len(states)),
		transitions: datastructure.NewTable(len(states), len(states), 0.0),
		start:       make([]float64, len(states)),
		stateLabels: make(map[string]int, len(states)),
		incoming:    make([][]int, len(states)),
		outgoing:    make([][]int, len(states)),
	}

	for i, state := range states {
		if state.arity < 1 {
			return nil, NewErrorf(ErrConfiguration, "state %q: arity must be at least 1, got %d", state.label, state.arity)
		}
		if _, ok := m.stateLabels[state.label]; ok {
			return nil, NewErrorf(ErrConfiguration, "state label %q used twice", state.label)
		}
		m.stateLabels[state.label] = i
		m.states[i] = state.clone()
	}
	return m, nil
}

func (m *Model) NumStates() int {
	return len(m.states)
}

func (m *Model) StateLabel(state int) string {
	return m.states[state].label
}

func (m *Model) StateIndex(label string) (int, error) {
	idx, ok := m.stateLabels[label]
	if !ok {
		return -1, NewErrorf(ErrConfiguration, "undefined state label %q", label)
	}
	return idx, nil
}

func (m *Model) StateArity(state int) int {
	return m.states[state].arity
}

func (m *Model) IsFinalized() bool {
	return m.finalized
}

func (m *Model) TransitionProb(from, to int) float64 {
	return m.transitions.At(from, to)
}

func (m *Model) SetTransitionProb(from, to int, prob float64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if err := checkProb(prob); err != nil {
		return err
	}
	m.transitions.Set(from, to, prob)
	return nil
}

func (m *Model) SetTransitionProbByLabel(from, to string, prob float64) error {
	i, err := m.StateIndex(from)
	if err != nil {
		return err
	}
	j, err := m.StateIndex(to)
	if err != nil {
		return err
	}
	return m.SetTransitionProb(i, j, prob)
}

// EmissionProb. probability that a visit of state emits obs. 0 when len(obs) != arity of the state.
func (m *Model) EmissionProb(state int, obs string) float64 {
	return m.states[state].emissionProb(obs)
}

func (m *Model) SetEmissionProb(state int, obs string, prob float64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if err := checkProb(prob); err != nil {
		return err
	}
	return m.states[state].setEmissionProb(obs, prob)
}

func (m *Model) SetEmissionProbByLabel(state, obs string, prob float64) error {
	i, err := m.StateIndex(state)
	if err != nil {
		return err
	}
	return m.SetEmissionProb(i, obs, prob)
}

func (m *Model) SetEmissionDistribution(state string, obs []string, probs []float64) error {
	if len(obs) != len(probs) {
		return NewErrorf(ErrConfiguration, "state %q: %d observations but %d probabilities", state, len(obs), len(probs))
	}
	for i := range obs {
		if err := m.SetEmissionProbByLabel(state, obs[i], probs[i]); err != nil {
			return err
		}
	}
	return nil
}

// EmissionKeys. sorted observation keys with an explicit emission probability.
func (m *Model) EmissionKeys(state int) []string {
	return m.states[state].sortedKeys()
}

func (m *Model) StartProb(state int) float64 {
	return m.start[state]
}

func (m *Model) SetStartProb(state int, prob float64) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if err := checkProb(prob); err != nil {
		return err
	}
	m.start[state] = prob
	return nil
}

func (m *Model) SetStartProbByLabel(state string, prob float64) error {
	i, err := m.StateIndex(state)
	if err != nil {
		return err
	}
	return m.SetStartProb(i, prob)
}

// IncomingStates. states k with transitionProb(k, state) > 0, ascending. nil while unfinalized.
func (m *Model) IncomingStates(state int) []int {
	return m.incoming[state]
}

// OutgoingStates. states k with transitionProb(state, k) > 0, ascending. nil while unfinalized.
func (m *Model) OutgoingStates(state int) []int {
	return m.outgoing[state]
}

// Finalize. validate emission and transition sums of every state, build the adjacency lists and
// lock the model for inference. calling Finalize on a finalized model fails.
func (m *Model) Finalize() error {
	if m.finalized {
		return NewErrorf(ErrValidation, "model is already finalized")
	}

	for i, state := range m.states {
		if sum := state.emissionSum(); math.Abs(sum-1) > Epsilon {
			return NewErrorf(ErrValidation, "state %q: emission probabilities sum to %v", state.label, sum)
		}
		if sum := floats.Sum(m.transitions.Row(i)); math.Abs(sum-1) > Epsilon {
			return NewErrorf(ErrValidation, "state %q: outgoing transition probabilities sum to %v", state.label, sum)
		}
	}

	n := m.NumStates()
	for i := 0; i < n; i++ {
		m.incoming[i] = make([]int, 0)
		m.outgoing[i] = make([]int, 0)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if m.transitions.At(i, j) > 0 {
				m.outgoing[i] = append(m.outgoing[i], j)
				m.incoming[j] = append(m.incoming[j], i)
			}
		}
	}

	m.finalized = true
	return nil
}

// Unlock. drop the adjacency lists and make the model mutable again. safe on an unlocked model.
func (m *Model) Unlock() {
	m.finalized = false
	for i := range m.states {
		m.incoming[i] = nil
		m.outgoing[i] = nil
	}
}

// Reset. zero the transition table, the start vector and every emission distribution.
func (m *Model) Reset() error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	m.transitions.Fill(0)
	for i := range m.start {
		m.start[i] = 0
	}
	for i := range m.states {
		m.states[i].emissions = make(map[string]float64)
	}
	return nil
}

// ExpandPath. turn a path of visited states into per-position labels, a visit of a state with
// arity d becomes d copies of its label.
func (m *Model) ExpandPath(states []int) []string {
	size := 0
	for _, s := range states {
		size += m.StateArity(s)
	}
	labels := make([]string, 0, size)
	for _, s := range states {
		for k := 0; k < m.StateArity(s); k++ {
			labels = append(labels, m.StateLabel(s))
		}
	}
	return labels
}

func (m *Model) checkMutable() error {
	if m.finalized {
		return NewErrorf(ErrConfiguration, "model is finalized")
	}
	return nil
}

func checkProb(prob float64) error {
	if math.IsNaN(prob) || prob < 0 || prob > 1+Epsilon {
		return NewErrorf(ErrConfiguration, "invalid probability %v", prob)
	}
	return nil
}
