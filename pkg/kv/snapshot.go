package kv

import (
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
)

// StoredModel. one training iteration read back from the store.
type StoredModel struct {
	Name          string
	Iteration     int
	LogLikelihood float64
	Model         *hmm.Model
}

// TraceRecord. decoded visit path of one named sequence.
type TraceRecord struct {
	Sequence   string
	States     []int32
	Annotation string
	LogProb    float64
}

// modelSnapshot. flat form of a model, emissions are stored as parallel arrays.
type modelSnapshot struct {
	Name          string
	Iteration     uint32
	LogLikelihood float64

	Labels      []string
	Arities     []int32
	Start       []float64
	Transitions []float64 // row-major N*N

	EmissionStates []int32
	EmissionKeys   []string
	EmissionProbs  []float64
}

func newSnapshot(name string, iteration int, m *hmm.Model, logLikelihood float64) modelSnapshot {
	n := m.NumStates()
	snap := modelSnapshot{
		Name:          name,
		Iteration:     uint32(iteration),
		LogLikelihood: logLikelihood,
		Labels:        make([]string, n),
		Arities:       make([]int32, n),
		Start:         make([]float64, n),
		Transitions:   make([]float64, 0, n*n),
	}
	for i := 0; i < n; i++ {
		snap.Labels[i] = m.StateLabel(i)
		snap.Arities[i] = int32(m.StateArity(i))
		snap.Start[i] = m.StartProb(i)
		for j := 0; j < n; j++ {
			snap.Transitions = append(snap.Transitions, m.TransitionProb(i, j))
		}
		for _, key := range m.EmissionKeys(i) {
			snap.EmissionStates = append(snap.EmissionStates, int32(i))
			snap.EmissionKeys = append(snap.EmissionKeys, key)
			snap.EmissionProbs = append(snap.EmissionProbs, m.EmissionProb(i, key))
		}
	}
	return snap
}

func (s modelSnapshot) toModel() (*hmm.Model, error) {
	n := len(s.Labels)
	states := make([]hmm.State, n)
	for i := range s.Labels {
		state, err := hmm.NewState(s.Labels[i], int(s.Arities[i]))
		if err != nil {
			return nil, err
		}
		states[i] = state
	}
	m, err := hmm.NewModel(states)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		if err := m.SetStartProb(i, s.Start[i]); err != nil {
			return nil, err
		}
		for j := 0; j < n; j++ {
			if err := m.SetTransitionProb(i, j, s.Transitions[i*n+j]); err != nil {
				return nil, err
			}
		}
	}
	for e := range s.EmissionKeys {
		if err := m.SetEmissionProb(int(s.EmissionStates[e]), s.EmissionKeys[e], s.EmissionProbs[e]); err != nil {
			return nil, err
		}
	}
	return m, nil
}
