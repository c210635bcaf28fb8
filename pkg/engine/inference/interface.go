package inference

// HMM. read-only view of a finalized model used by the dynamic programs.
type HMM interface {
	NumStates() int
	IsFinalized() bool
	StateArity(state int) int
	StartProb(state int) float64
	TransitionProb(from, to int) float64
	EmissionProb(state int, obs string) float64
	IncomingStates(state int) []int
	OutgoingStates(state int) []int
}
