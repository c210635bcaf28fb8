package rest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"github.com/lintang-b-s/codonhmm/pkg/kv"
	"github.com/lintang-b-s/codonhmm/pkg/server/rest/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

type AnnotationService interface {
	Decode(ctx context.Context, name, seq string) (service.Decoded, error)
	LogLikelihood(ctx context.Context, seq string) (float64, error)
	WriteModel(w io.Writer) error
	Trace(ctx context.Context, name string) (kv.TraceRecord, error)
}

type AnnotationHandler struct {
	svc      AnnotationService
	metrics  *Metrics
	validate *validator.Validate
	trans    ut.Translator
}

func AnnotationRouter(r *chi.Mux, svc AnnotationService, m *Metrics) {
	validate, trans := newValidator()
	handler := &AnnotationHandler{svc, m, validate, trans}

	r.Group(func(r chi.Router) {
		r.Route("/api/annotation", func(r chi.Router) {
			r.Post("/decode", handler.Decode)
			r.Post("/likelihood", handler.LogLikelihood)
			r.Get("/model", handler.Model)
			r.Get("/traces/{name}", handler.Trace)
		})
	})
}

// newValidator. validator with english messages and the nucleotides rule: only A, C, G and T in
// either case.
func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	_ = validate.RegisterValidation("nucleotides", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't':
			default:
				return false
			}
		}
		return true
	})
	_ = validate.RegisterTranslation("nucleotides", trans,
		func(ut ut.Translator) error {
			return ut.Add("nucleotides", "{0} must only contain the bases A, C, G and T", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("nucleotides", fe.Field())
			return t
		})
	return validate, trans
}

func (h *AnnotationHandler) validateRequest(w http.ResponseWriter, r *http.Request, data interface{}) bool {
	if err := h.validate.Struct(data); err != nil {
		vv := translateError(err, h.trans)
		render.Render(w, r, ErrValidation(err, vv))
		return false
	}
	return true
}

type DecodeRequest struct {
	Name     string `json:"name" validate:"omitempty,max=256,excludesall=/"`
	Sequence string `json:"sequence" validate:"required,nucleotides"`
}

func (s *DecodeRequest) Bind(r *http.Request) error {
	if s.Sequence == "" {
		return errors.New("invalid request")
	}
	return nil
}

type SegmentResponse struct {
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type DecodeResponse struct {
	Found      bool              `json:"found"`
	LogProb    *float64          `json:"log_prob"`
	Annotation string            `json:"annotation,omitempty"`
	Segments   []SegmentResponse `json:"segments,omitempty"`
}

// finite. nil for -Inf, json has no infinities.
func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func RenderDecodeResponse(res service.Decoded) *DecodeResponse {
	segs := make([]SegmentResponse, 0, len(res.Segments))
	for _, s := range res.Segments {
		segs = append(segs, SegmentResponse{Label: s.Label, Start: s.Start, End: s.End})
	}
	return &DecodeResponse{
		Found:      res.Found,
		LogProb:    finite(res.LogProb),
		Annotation: res.Annotation,
		Segments:   segs,
	}
}

func (h *AnnotationHandler) Decode(w http.ResponseWriter, r *http.Request) {
	data := &DecodeRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !h.validateRequest(w, r, *data) {
		return
	}

	res, err := h.svc.Decode(r.Context(), data.Name, data.Sequence)
	if err != nil {
		render.Render(w, r, errorRenderer(err))
		return
	}
	h.metrics.DecodedSymbols.Add(float64(len(data.Sequence)))

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderDecodeResponse(res))
}

type LikelihoodRequest struct {
	Sequence string `json:"sequence" validate:"required,nucleotides"`
}

func (s *LikelihoodRequest) Bind(r *http.Request) error {
	if s.Sequence == "" {
		return errors.New("invalid request")
	}
	return nil
}

type LikelihoodResponse struct {
	LogLikelihood *float64 `json:"log_likelihood"`
	Possible      bool     `json:"possible"`
}

func (h *AnnotationHandler) LogLikelihood(w http.ResponseWriter, r *http.Request) {
	data := &LikelihoodRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !h.validateRequest(w, r, *data) {
		return
	}

	ll, err := h.svc.LogLikelihood(r.Context(), data.Sequence)
	if err != nil {
		render.Render(w, r, errorRenderer(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &LikelihoodResponse{LogLikelihood: finite(ll), Possible: !math.IsInf(ll, -1)})
}

func (h *AnnotationHandler) Model(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.WriteModel(&buf); err != nil {
		render.Render(w, r, errorRenderer(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.PlainText(w, r, buf.String())
}

type TraceResponse struct {
	Sequence   string   `json:"sequence"`
	States     []int32  `json:"states"`
	Annotation string   `json:"annotation"`
	LogProb    *float64 `json:"log_prob"`
}

func (h *AnnotationHandler) Trace(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	trace, err := h.svc.Trace(r.Context(), name)
	if err != nil {
		render.Render(w, r, errorRenderer(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &TraceResponse{
		Sequence:   trace.Sequence,
		States:     trace.States,
		Annotation: trace.Annotation,
		LogProb:    finite(trace.LogProb),
	})
}

// errorRenderer. map model and store errors to a status, anything else is a 500 without detail.
func errorRenderer(err error) render.Renderer {
	switch {
	case errors.Is(err, kv.ErrTraceNotFound):
		return ErrNotFound(err)
	case hmm.Code(err) == hmm.ErrConfiguration:
		return ErrInvalidRequest(err)
	case hmm.Code(err) == hmm.ErrValidation:
		return ErrUnprocessable(err)
	default:
		return ErrInternalServerErrorRend(errors.New("internal server error"))
	}
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrNotFound(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 404,
		StatusText:     "Resource not found.",
		ErrorText:      err.Error(),
	}
}

func ErrUnprocessable(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 422,
		StatusText:     "Unprocessable entity.",
		ErrorText:      err.Error(),
	}
}

type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       int64    `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message, for debugging
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []error{err}
	}
	for _, e := range validatorErrs {
		errs = append(errs, errors.New(e.Translate(trans)))
	}
	return errs
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}

func ErrInternalServerErrorRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 500,
		StatusText:     "Internal server error.",
		ErrorText:      err.Error(),
	}
}
