package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lintang-b-s/codonhmm/pkg/engine/inference"
	"github.com/lintang-b-s/codonhmm/pkg/genome"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"github.com/lintang-b-s/codonhmm/pkg/kv"
)

type Segment struct {
	Label string
	Start int
	End   int
}

type Decoded struct {
	Found      bool
	LogProb    float64
	Annotation string
	States     []int
	Segments   []Segment
}

type AnnotationService struct {
	model     Model
	modelName string
	store     TraceStore
}

// NewAnnotationService. model must be finalized and must not be unlocked while the service runs.
// store may be nil, decoded traces are then not persisted.
func NewAnnotationService(model Model, modelName string, store TraceStore) (*AnnotationService, error) {
	if !model.IsFinalized() {
		return nil, hmm.NewErrorf(hmm.ErrValidation, "served model should be finalized")
	}
	return &AnnotationService{model: model, modelName: modelName, store: store}, nil
}

// Decode. most probable annotation of seq. a named sequence is stored with its trace.
func (uc *AnnotationService) Decode(ctx context.Context, name, seq string) (Decoded, error) {
	seq = strings.ToUpper(seq)
	trace, err := inference.Viterbi(seq, uc.model)
	if err != nil {
		return Decoded{}, err
	}
	if !trace.Found() {
		return Decoded{LogProb: trace.LogProb}, nil
	}

	labels := uc.model.ExpandPath(trace.States)
	res := Decoded{
		Found:      true,
		LogProb:    trace.LogProb,
		Annotation: genome.FormatAnnotation(labels),
		States:     trace.States,
	}
	for _, seg := range trace.Segments(uc.model) {
		res.Segments = append(res.Segments, Segment{
			Label: uc.model.StateLabel(seg.State),
			Start: seg.Start,
			End:   seg.End,
		})
	}

	if name != "" && uc.store != nil {
		states := make([]int32, len(trace.States))
		for i, s := range trace.States {
			states[i] = int32(s)
		}
		err := uc.store.SaveTraces(ctx, uc.modelName, []kv.TraceRecord{{
			Sequence:   name,
			States:     states,
			Annotation: res.Annotation,
			LogProb:    trace.LogProb,
		}})
		if err != nil {
			return Decoded{}, fmt.Errorf("save trace %s: %w", name, err)
		}
	}
	return res, nil
}

// LogLikelihood. log P(seq | model), -Inf when no path explains seq.
func (uc *AnnotationService) LogLikelihood(ctx context.Context, seq string) (float64, error) {
	res, err := inference.ForwardBackward(strings.ToUpper(seq), uc.model)
	if err != nil {
		return 0, err
	}
	return res.LogLikelihood(), nil
}

func (uc *AnnotationService) WriteModel(w io.Writer) error {
	return uc.model.WriteDot(w)
}

// Trace. stored trace of the sequence called name.
func (uc *AnnotationService) Trace(ctx context.Context, name string) (kv.TraceRecord, error) {
	if uc.store == nil {
		return kv.TraceRecord{}, fmt.Errorf("%s: %w", name, kv.ErrTraceNotFound)
	}
	return uc.store.GetTrace(uc.modelName, name)
}
