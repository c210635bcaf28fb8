package training

// EmptyRowPolicy. what the trainers write when a transition row or an emission distribution got
// no counts at all.
type EmptyRowPolicy int

const (
	// LeaveEmpty. the row stays zero and Finalize reports the state later.
	LeaveEmpty EmptyRowPolicy = iota
	// UniformRow. spread the mass evenly over every state, or every word of the alphabet.
	UniformRow
	// FailOnEmptyRow. training fails naming the state.
	FailOnEmptyRow
)

func (p EmptyRowPolicy) String() string {
	switch p {
	case LeaveEmpty:
		return "leave-empty"
	case UniformRow:
		return "uniform"
	case FailOnEmptyRow:
		return "fail"
	default:
		return "unknown"
	}
}

type Config struct {
	EmptyRows EmptyRowPolicy
	// Alphabet. symbols used to build uniform emission rows.
	Alphabet string
}

func DefaultConfig() Config {
	return Config{
		EmptyRows: LeaveEmpty,
		Alphabet:  "ACGT",
	}
}

// words. every string of length n over alphabet, in lexicographic order of the alphabet.
func words(alphabet string, n int) []string {
	out := []string{""}
	for k := 0; k < n; k++ {
		next := make([]string, 0, len(out)*len(alphabet))
		for _, prefix := range out {
			for i := 0; i < len(alphabet); i++ {
				next = append(next, prefix+alphabet[i:i+1])
			}
		}
		out = next
	}
	return out
}
