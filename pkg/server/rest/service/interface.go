package service

import (
	"context"
	"io"

	"github.com/lintang-b-s/codonhmm/pkg/engine/inference"
	"github.com/lintang-b-s/codonhmm/pkg/kv"
)

// Model. finalized model served read-only.
type Model interface {
	inference.HMM
	StateLabel(state int) string
	ExpandPath(states []int) []string
	WriteDot(w io.Writer) error
}

type TraceStore interface {
	SaveTraces(ctx context.Context, model string, traces []kv.TraceRecord) error
	GetTrace(model, seq string) (kv.TraceRecord, error)
}
