package inference

import (
	"math"

	"github.com/lintang-b-s/codonhmm/pkg/datastructure"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"github.com/lintang-b-s/codonhmm/pkg/util"
)

// Trace. most probable visit sequence of one decoded sequence.
type Trace struct {
	States  []int   // one entry per visit, not per position
	LogProb float64 // natural log of the joint probability of the path and the sequence
}

// Segment. one visit of a state covering positions [Start, End).
type Segment struct {
	State int
	Start int
	End   int
}

// Found. false when no path can explain the sequence.
func (t Trace) Found() bool {
	return len(t.States) > 0
}

// Segments. positions each visit covers, in order.
func (t Trace) Segments(model HMM) []Segment {
	segments := make([]Segment, 0, len(t.States))
	pos := 0
	for _, s := range t.States {
		d := model.StateArity(s)
		segments = append(segments, Segment{State: s, Start: pos, End: pos + d})
		pos += d
	}
	return segments
}

type viterbiCell struct {
	pred  int32 // -1 for a visit that starts the sequence
	score float64
}

// Viterbi. most probable visit sequence in log space. each cell (i, s) holds the best path whose
// last visit is s ending at position i. ties go to the lowest indexed predecessor.
// returns a Trace with no states and LogProb -Inf when no path explains seq. O(L*N^2)
func Viterbi(seq string, model HMM) (Trace, error) {
	if len(seq) == 0 {
		return Trace{}, hmm.NewErrorf(hmm.ErrConfiguration, "empty sequence")
	}
	if !model.IsFinalized() {
		return Trace{}, hmm.NewErrorf(hmm.ErrValidation, "model should be finalized")
	}

	L := len(seq)
	N := model.NumStates()
	negInf := math.Inf(-1)

	logStart := make([]float64, N)
	logTrans := datastructure.NewTable(N, N, negInf)
	for s := 0; s < N; s++ {
		logStart[s] = math.Log(model.StartProb(s))
		for _, next := range model.OutgoingStates(s) {
			logTrans.Set(s, next, math.Log(model.TransitionProb(s, next)))
		}
	}

	// emission probabilities repeat a lot across positions
	logMemo := make(map[float64]float64)
	logEmission := func(s int, obs string) float64 {
		p := model.EmissionProb(s, obs)
		if p == 0 {
			return negInf
		}
		if v, ok := logMemo[p]; ok {
			return v
		}
		v := math.Log(p)
		logMemo[p] = v
		return v
	}

	cells := datastructure.NewTable(L, N, viterbiCell{pred: -1, score: negInf})

	for i := 0; i < L; i++ {
		for s := 0; s < N; s++ {
			d := model.StateArity(s)
			if i < d-1 {
				continue
			}

			e := logEmission(s, seq[i-d+1:i+1])
			if math.IsInf(e, -1) {
				continue
			}

			best := viterbiCell{pred: -1, score: negInf}
			if i == d-1 {
				best.score = logStart[s]
			} else {
				for _, k := range model.IncomingStates(s) {
					score := cells.At(i-d, k).score + logTrans.At(k, s)
					if score > best.score {
						best = viterbiCell{pred: int32(k), score: score}
					}
				}
			}
			if math.IsInf(best.score, -1) {
				continue
			}
			best.score += e
			cells.Set(i, s, best)
		}
	}

	last := -1
	bestScore := negInf
	for s := 0; s < N; s++ {
		if score := cells.At(L-1, s).score; score > bestScore {
			bestScore = score
			last = s
		}
	}
	if last == -1 {
		return Trace{LogProb: negInf}, nil
	}

	path := make([]int, 0, L)
	i, s := L-1, last
	for {
		path = append(path, s)
		pred := cells.At(i, s).pred
		if pred < 0 {
			break
		}
		i -= model.StateArity(s)
		s = int(pred)
	}

	return Trace{
		States:  util.ReverseG(path),
		LogProb: bestScore,
	}, nil
}
