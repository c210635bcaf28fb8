package genome

import (
	"strings"

	"github.com/lintang-b-s/codonhmm/pkg/hmm"
)

// labels of the gene model
const (
	Noncoding    = "N"
	Start        = "S"
	Coding       = "C"
	End          = "E"
	ReverseStart = "RS"
	ReverseCode  = "RC"
	ReverseEnd   = "RE"
)

// ParseAnnotation. turn an annotation over observation into the expanded label path of the gene
// model. 'N' marks a noncoding base, a run of 'C' (forward strand) or 'R' (reverse strand) marks a
// gene whose first codon is a start visit, last codon an end visit and the rest coding visits.
// annotation letters are case-insensitive.
func ParseAnnotation(observation, annotation string) ([]string, error) {
	if len(observation) != len(annotation) {
		return nil, hmm.NewErrorf(hmm.ErrConfiguration, "annotation has length %d, observation has length %d",
			len(annotation), len(observation))
	}

	labels := make([]string, 0, len(annotation))
	for i := 0; i < len(annotation); {
		kind := upper(annotation[i])
		if kind == 'N' {
			labels = append(labels, Noncoding)
			i++
			continue
		}

		start, code, end := Start, Coding, End
		switch kind {
		case 'C':
		case 'R':
			start, code, end = ReverseStart, ReverseCode, ReverseEnd
		default:
			return nil, hmm.NewErrorf(hmm.ErrConfiguration, "unknown annotation symbol %q at position %d", annotation[i], i)
		}

		j := i
		for j < len(annotation) && upper(annotation[j]) == kind {
			j++
		}
		n := j - i
		if n%3 != 0 {
			return nil, hmm.NewErrorf(hmm.ErrConfiguration, "gene at position %d has length %d, not a whole number of codons", i, n)
		}
		if n < 6 {
			return nil, hmm.NewErrorf(hmm.ErrConfiguration, "gene at position %d is shorter than a start and an end codon", i)
		}

		labels = appendVisit(labels, start)
		for k := 3; k < n-3; k += 3 {
			labels = appendVisit(labels, code)
		}
		labels = appendVisit(labels, end)
		i = j
	}
	return labels, nil
}

func appendVisit(labels []string, label string) []string {
	return append(labels, label, label, label)
}

// FormatAnnotation. inverse of ParseAnnotation for any expanded label path: labels starting with N
// are noncoding, labels starting with R are reverse genes and everything else is a forward gene.
func FormatAnnotation(labels []string) string {
	var sb strings.Builder
	sb.Grow(len(labels))
	for _, label := range labels {
		switch {
		case strings.HasPrefix(label, "N"):
			sb.WriteByte('N')
		case strings.HasPrefix(label, "R"):
			sb.WriteByte('R')
		default:
			sb.WriteByte('C')
		}
	}
	return sb.String()
}
