package genome

import (
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"golang.org/x/exp/rand"
)

const bases = "ACGT"

// Codons. all 64 codons in lexicographic order.
func Codons() []string {
	codons := make([]string, 0, 64)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				codons = append(codons, string([]byte{bases[i], bases[j], bases[k]}))
			}
		}
	}
	return codons
}

func newStates(labels []string, arities []int) ([]hmm.State, error) {
	states := make([]hmm.State, len(labels))
	for i, label := range labels {
		s, err := hmm.NewState(label, arities[i])
		if err != nil {
			return nil, err
		}
		states[i] = s
	}
	return states, nil
}

// NewGeneModel. the seven state gene model: noncoding bases, and on each strand a start codon,
// repeated coding codons and an end codon. codon emissions are random and reproducible for a seed.
// the model is returned unlocked.
func NewGeneModel(seed uint64) (*hmm.Model, error) {
	labels := []string{Noncoding, Start, End, Coding, ReverseStart, ReverseEnd, ReverseCode}
	states, err := newStates(labels, []int{1, 3, 3, 3, 3, 3, 3})
	if err != nil {
		return nil, err
	}
	m, err := hmm.NewModel(states)
	if err != nil {
		return nil, err
	}

	if err := m.SetEmissionDistribution(Noncoding, []string{"A", "C", "G", "T"}, []float64{0.25, 0.25, 0.25, 0.25}); err != nil {
		return nil, err
	}
	codons := Codons()
	for i, label := range labels[1:] {
		rng := rand.New(rand.NewSource(seed + uint64(i)))
		if err := m.SetEmissionDistribution(label, codons, randomDistribution(rng, len(codons))); err != nil {
			return nil, err
		}
	}

	transitions := []struct {
		from, to string
		prob     float64
	}{
		{Noncoding, Noncoding, 0.9},
		{Noncoding, Start, 0.05},
		{Start, Coding, 1},
		{Coding, Coding, 0.95},
		{Coding, End, 0.05},
		{End, Noncoding, 1},
		{Noncoding, ReverseStart, 0.05},
		{ReverseStart, ReverseCode, 1},
		{ReverseCode, ReverseCode, 0.95},
		{ReverseCode, ReverseEnd, 0.05},
		{ReverseEnd, Noncoding, 1},
	}
	for _, tr := range transitions {
		if err := m.SetTransitionProbByLabel(tr.from, tr.to, tr.prob); err != nil {
			return nil, err
		}
	}
	if err := m.SetStartProbByLabel(Noncoding, 1); err != nil {
		return nil, err
	}
	return m, nil
}

// randomDistribution. n weights drawn uniformly from 1..100, normalized.
func randomDistribution(rng *rand.Rand, n int) []float64 {
	weights := make([]float64, n)
	sum := 0.0
	for i := range weights {
		weights[i] = float64(rng.Intn(100) + 1)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// NewThreeStateModel. noncoding bases plus one codon state per strand, codon emissions are the
// product of per-position base frequencies.
func NewThreeStateModel() (*hmm.Model, error) {
	states, err := newStates([]string{"NC", "C", "R"}, []int{1, 3, 3})
	if err != nil {
		return nil, err
	}
	m, err := hmm.NewModel(states)
	if err != nil {
		return nil, err
	}

	forward := [3][4]float64{
		{0.4, 0.15, 0.2, 0.25},
		{0.2, 0.35, 0.15, 0.30},
		{0.3, 0.25, 0.25, 0.20},
	}
	reverse := [3][4]float64{
		{0.2, 0.4, 0.3, 0.1},
		{0.3, 0.2, 0.3, 0.2},
		{0.15, 0.30, 0.20, 0.35},
	}
	codons := Codons()
	forwardProbs := make([]float64, len(codons))
	reverseProbs := make([]float64, len(codons))
	for idx := range codons {
		i, j, k := idx/16, (idx/4)%4, idx%4
		forwardProbs[idx] = forward[0][i] * forward[1][j] * forward[2][k]
		reverseProbs[idx] = reverse[0][i] * reverse[1][j] * reverse[2][k]
	}

	if err := m.SetEmissionDistribution("NC", []string{"A", "C", "G", "T"}, []float64{0.25, 0.25, 0.25, 0.25}); err != nil {
		return nil, err
	}
	if err := m.SetEmissionDistribution("C", codons, forwardProbs); err != nil {
		return nil, err
	}
	if err := m.SetEmissionDistribution("R", codons, reverseProbs); err != nil {
		return nil, err
	}

	transitions := []struct {
		from, to string
		prob     float64
	}{
		{"NC", "NC", 0.9},
		{"NC", "C", 0.05},
		{"NC", "R", 0.05},
		{"C", "C", 0.9},
		{"C", "NC", 0.1},
		{"R", "R", 0.9},
		{"R", "NC", 0.1},
	}
	for _, tr := range transitions {
		if err := m.SetTransitionProbByLabel(tr.from, tr.to, tr.prob); err != nil {
			return nil, err
		}
	}
	if err := m.SetStartProbByLabel("NC", 1); err != nil {
		return nil, err
	}
	return m, nil
}
