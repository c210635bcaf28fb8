package training

import "github.com/lintang-b-s/codonhmm/pkg/engine/inference"

// TrainableModel. model the trainers read through inference and write back after unlocking.
type TrainableModel interface {
	inference.HMM

	StateLabel(state int) string
	StateIndex(label string) (int, error)
	ExpandPath(states []int) []string

	Finalize() error
	Unlock()
	Reset() error

	SetTransitionProb(from, to int, prob float64) error
	SetEmissionProb(state int, obs string, prob float64) error
	SetStartProb(state int, prob float64) error
}
