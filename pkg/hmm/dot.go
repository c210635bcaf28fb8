package hmm

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

const (
	dotOpen  = "digraph foo {"
	dotClose = "}"
)

var (
	plainID = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

	idPattern = `("(?:[^"\\]|\\.)*"|[^\s\[\]";]+)`
	edgeRe    = regexp.MustCompile(`^` + idPattern + `\s*->\s*` + idPattern + `\s*\[\s*label\s*=\s*"([^"]*)"\s*\]\s*;?$`)
	nodeRe    = regexp.MustCompile(`^` + idPattern + `\s*\[(.*)\]\s*;?$`)
	attrRe    = regexp.MustCompile(`^\s*([A-Za-z_]+)\s*=\s*("(?:[^"\\]|\\.)*"|[^,\s]+)\s*(?:,|$)`)
)

// WriteDot. dump a finalized model as a graphviz digraph. one node line per state carrying its
// emission table (and start probability when positive), one edge line per positive transition.
func (m *Model) WriteDot(w io.Writer) error {
	if !m.finalized {
		return NewErrorf(ErrValidation, "model should be finalized before writing it")
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, dotOpen)

	for i, state := range m.states {
		var sb strings.Builder
		for _, key := range state.sortedKeys() {
			if strings.ContainsAny(key, "\"\\\n") {
				return NewErrorf(ErrFormat, "state %q: emission key %q can not be written", state.label, key)
			}
			fmt.Fprintf(&sb, "%s: %s\\n", key, formatProb(state.emissions[key]))
		}
		fmt.Fprintf(bw, "%s[label=\"%s\"", quoteID(state.label), sb.String())
		if m.start[i] > 0 {
			fmt.Fprintf(bw, ", start=\"%s\"", formatProb(m.start[i]))
		}
		fmt.Fprintln(bw, "];")
	}

	for i := range m.states {
		for _, j := range m.outgoing[i] {
			fmt.Fprintf(bw, "%s -> %s [label=\"%s\"];\n", quoteID(m.states[i].label), quoteID(m.states[j].label),
				formatProb(m.transitions.At(i, j)))
		}
	}

	fmt.Fprintln(bw, dotClose)
	return bw.Flush()
}

type dotNode struct {
	label     string
	keys      []string
	probs     []float64
	startProb float64
}

type dotEdge struct {
	from, to string
	prob     float64
}

// ReadDot. parse a model written by WriteDot. the arity of each state is the length of its first
// emission key. the returned model is not finalized.
func ReadDot(r io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	nodes := make([]dotNode, 0)
	edges := make([]dotEdge, 0)
	seen := make(map[string]bool)
	opened, closed := false, false

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if closed {
			return nil, NewErrorf(ErrFormat, "line %d: content after closing brace", lineNo)
		}

		switch {
		case line == dotOpen && !opened:
			opened = true
		case !opened:
			return nil, NewErrorf(ErrFormat, "line %d: expected %q", lineNo, dotOpen)
		case line == dotClose:
			closed = true
		case edgeRe.MatchString(line):
			edge, err := parseEdge(line)
			if err != nil {
				return nil, WrapErrorf(err, ErrFormat, "line %d", lineNo)
			}
			edges = append(edges, edge)
		case nodeRe.MatchString(line):
			node, err := parseNode(line)
			if err != nil {
				return nil, WrapErrorf(err, ErrFormat, "line %d", lineNo)
			}
			if seen[node.label] {
				return nil, NewErrorf(ErrFormat, "line %d: state %q declared twice", lineNo, node.label)
			}
			seen[node.label] = true
			nodes = append(nodes, node)
		default:
			return nil, NewErrorf(ErrFormat, "line %d: unrecognized line %q", lineNo, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, WrapErrorf(err, ErrFormat, "reading model")
	}
	if !opened || !closed {
		return nil, NewErrorf(ErrFormat, "model text is not enclosed in %q ... %q", dotOpen, dotClose)
	}

	states := make([]State, 0, len(nodes))
	for _, node := range nodes {
		state, err := NewState(node.label, len(node.keys[0]))
		if err != nil {
			return nil, WrapErrorf(err, ErrFormat, "state %q", node.label)
		}
		states = append(states, state)
	}
	m, err := NewModel(states)
	if err != nil {
		return nil, WrapErrorf(err, ErrFormat, "building model")
	}

	for i, node := range nodes {
		for k := range node.keys {
			if err := m.SetEmissionProb(i, node.keys[k], node.probs[k]); err != nil {
				return nil, WrapErrorf(err, ErrFormat, "state %q", node.label)
			}
		}
		if err := m.SetStartProb(i, node.startProb); err != nil {
			return nil, WrapErrorf(err, ErrFormat, "state %q", node.label)
		}
	}
	for _, edge := range edges {
		if !seen[edge.from] || !seen[edge.to] {
			return nil, NewErrorf(ErrFormat, "transition %q -> %q references an undeclared state", edge.from, edge.to)
		}
		if err := m.SetTransitionProbByLabel(edge.from, edge.to, edge.prob); err != nil {
			return nil, WrapErrorf(err, ErrFormat, "transition %q -> %q", edge.from, edge.to)
		}
	}
	return m, nil
}

func parseEdge(line string) (dotEdge, error) {
	match := edgeRe.FindStringSubmatch(line)
	from, err := unquoteID(match[1])
	if err != nil {
		return dotEdge{}, err
	}
	to, err := unquoteID(match[2])
	if err != nil {
		return dotEdge{}, err
	}
	prob, err := strconv.ParseFloat(strings.TrimSpace(match[3]), 64)
	if err != nil {
		return dotEdge{}, fmt.Errorf("transition probability: %w", err)
	}
	return dotEdge{from: from, to: to, prob: prob}, nil
}

func parseNode(line string) (dotNode, error) {
	match := nodeRe.FindStringSubmatch(line)
	label, err := unquoteID(match[1])
	if err != nil {
		return dotNode{}, err
	}
	node := dotNode{label: label}

	attrs := match[2]
	hasLabel := false
	for strings.TrimSpace(attrs) != "" {
		am := attrRe.FindStringSubmatchIndex(attrs)
		if am == nil {
			return dotNode{}, fmt.Errorf("state %q: malformed attributes %q", label, attrs)
		}
		name := attrs[am[2]:am[3]]
		value := attrs[am[4]:am[5]]
		attrs = attrs[am[1]:]

		if strings.HasPrefix(value, `"`) {
			value = value[1 : len(value)-1]
		}

		switch name {
		case "label":
			hasLabel = true
			if err := parseEmissions(&node, value); err != nil {
				return dotNode{}, err
			}
		case "start":
			p, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return dotNode{}, fmt.Errorf("state %q: start probability: %w", label, err)
			}
			node.startProb = p
		case "shape":
		default:
			return dotNode{}, fmt.Errorf("state %q: unknown attribute %q", label, name)
		}
	}

	if !hasLabel || len(node.keys) == 0 {
		return dotNode{}, fmt.Errorf("state %q has no emission probabilities", label)
	}
	return node, nil
}

// parseEmissions. "<key>: <prob>\n<key>: <prob>\n" with literal backslash-n separators.
func parseEmissions(node *dotNode, value string) error {
	for _, entry := range strings.Split(value, `\n`) {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		sep := strings.LastIndex(entry, ": ")
		if sep <= 0 {
			return fmt.Errorf("state %q: malformed emission %q", node.label, entry)
		}
		prob, err := strconv.ParseFloat(strings.TrimSpace(entry[sep+2:]), 64)
		if err != nil {
			return fmt.Errorf("state %q: emission probability: %w", node.label, err)
		}
		key := entry[:sep]
		if len(node.keys) > 0 && len(key) != len(node.keys[0]) {
			return fmt.Errorf("state %q: emission %q does not have length %d", node.label, key, len(node.keys[0]))
		}
		node.keys = append(node.keys, key)
		node.probs = append(node.probs, prob)
	}
	return nil
}

func formatProb(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64)
}

func quoteID(label string) string {
	if plainID.MatchString(label) {
		return label
	}
	return strconv.Quote(label)
}

func unquoteID(id string) (string, error) {
	if strings.HasPrefix(id, `"`) {
		s, err := strconv.Unquote(id)
		if err != nil {
			return "", fmt.Errorf("malformed state label %s: %w", id, err)
		}
		return s, nil
	}
	return id, nil
}
