package rest_test

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/lintang-b-s/codonhmm/pkg/hmm"
	"github.com/lintang-b-s/codonhmm/pkg/kv"
	"github.com/lintang-b-s/codonhmm/pkg/server/rest"
	"github.com/lintang-b-s/codonhmm/pkg/server/rest/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codonModel(t *testing.T) *hmm.Model {
	t.Helper()
	n, err := hmm.NewState("N", 1)
	require.NoError(t, err)
	c, err := hmm.NewState("C", 3)
	require.NoError(t, err)
	m, err := hmm.NewModel([]hmm.State{n, c})
	require.NoError(t, err)

	require.NoError(t, m.SetEmissionDistribution("N", []string{"A", "C", "G", "T"}, []float64{0.25, 0.25, 0.25, 0.25}))
	require.NoError(t, m.SetEmissionProbByLabel("C", "AAA", 1))
	require.NoError(t, m.SetStartProbByLabel("N", 1))
	require.NoError(t, m.SetTransitionProbByLabel("N", "N", 0.95))
	require.NoError(t, m.SetTransitionProbByLabel("N", "C", 0.05))
	require.NoError(t, m.SetTransitionProbByLabel("C", "C", 0.95))
	require.NoError(t, m.SetTransitionProbByLabel("C", "N", 0.05))
	require.NoError(t, m.Finalize())
	return m
}

// onlyA. every sequence containing something other than A is impossible.
func onlyA(t *testing.T) *hmm.Model {
	t.Helper()
	n, err := hmm.NewState("N", 1)
	require.NoError(t, err)
	m, err := hmm.NewModel([]hmm.State{n})
	require.NoError(t, err)
	require.NoError(t, m.SetEmissionProbByLabel("N", "A", 1))
	require.NoError(t, m.SetStartProbByLabel("N", 1))
	require.NoError(t, m.SetTransitionProbByLabel("N", "N", 1))
	require.NoError(t, m.Finalize())
	return m
}

func newServer(t *testing.T, model *hmm.Model) *httptest.Server {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	store := kv.NewKVDB(db)
	t.Cleanup(func() { store.Close() })

	svc, err := service.NewAnnotationService(model, "test", store)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)
	r := chi.NewRouter()
	r.Use(rest.PromeHttpMiddleware(m))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	rest.AnnotationRouter(r, svc, m)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestDecode(t *testing.T) {
	t.Run("success codon at the end", func(t *testing.T) {
		srv := newServer(t, codonModel(t))
		resp, out := post(t, srv, "/api/annotation/decode", `{"sequence":"aaaaaa"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		assert.Equal(t, true, out["found"])
		assert.Equal(t, "NNNCCC", out["annotation"])
		want := 3*math.Log(0.25) + 2*math.Log(0.95) + math.Log(0.05)
		assert.InDelta(t, want, out["log_prob"], 1e-9)

		segments := out["segments"].([]interface{})
		require.Len(t, segments, 4)
		last := segments[3].(map[string]interface{})
		assert.Equal(t, "C", last["label"])
		assert.Equal(t, 3.0, last["start"])
		assert.Equal(t, 6.0, last["end"])
	})

	t.Run("success named trace is stored", func(t *testing.T) {
		srv := newServer(t, codonModel(t))
		resp, _ := post(t, srv, "/api/annotation/decode", `{"name":"genome6","sequence":"AAAAAA"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := get(t, srv, "/api/annotation/traces/genome6")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		assert.Equal(t, "genome6", out["sequence"])
		assert.Equal(t, "NNNCCC", out["annotation"])
	})

	t.Run("success no path", func(t *testing.T) {
		srv := newServer(t, onlyA(t))
		resp, out := post(t, srv, "/api/annotation/decode", `{"sequence":"AAC"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, false, out["found"])
		assert.Nil(t, out["log_prob"])
	})

	t.Run("error invalid bases", func(t *testing.T) {
		srv := newServer(t, codonModel(t))
		resp, out := post(t, srv, "/api/annotation/decode", `{"sequence":"ACGN"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		validation := out["validation"].([]interface{})
		require.Len(t, validation, 1)
		assert.Contains(t, validation[0], "must only contain the bases")
	})

	t.Run("error missing sequence", func(t *testing.T) {
		srv := newServer(t, codonModel(t))
		resp, _ := post(t, srv, "/api/annotation/decode", `{}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("error malformed json", func(t *testing.T) {
		srv := newServer(t, codonModel(t))
		resp, _ := post(t, srv, "/api/annotation/decode", `{"sequence":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLogLikelihood(t *testing.T) {
	t.Run("success single base", func(t *testing.T) {
		srv := newServer(t, codonModel(t))
		resp, out := post(t, srv, "/api/annotation/likelihood", `{"sequence":"G"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.InDelta(t, math.Log(0.25), out["log_likelihood"], 1e-12)
		assert.Equal(t, true, out["possible"])
	})

	t.Run("success impossible sequence", func(t *testing.T) {
		srv := newServer(t, onlyA(t))
		resp, out := post(t, srv, "/api/annotation/likelihood", `{"sequence":"ACA"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Nil(t, out["log_likelihood"])
		assert.Equal(t, false, out["possible"])
	})
}

func TestModelAndTraces(t *testing.T) {
	srv := newServer(t, codonModel(t))

	t.Run("success model as dot", func(t *testing.T) {
		resp, body := get(t, srv, "/api/annotation/model")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, strings.HasPrefix(body, "digraph foo {"))
		assert.Contains(t, body, `N -> C [label="0.05"];`)
	})

	t.Run("error trace not found", func(t *testing.T) {
		resp, _ := get(t, srv, "/api/annotation/traces/nope")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("success metrics", func(t *testing.T) {
		resp, body := get(t, srv, "/metrics")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "codonhmm_http_requests_total")
		assert.Contains(t, body, `path="/api/annotation/traces/{name}"`)
	})
}

func TestNewAnnotationService(t *testing.T) {
	m := codonModel(t)
	m.Unlock()
	_, err := service.NewAnnotationService(m, "test", nil)
	assert.ErrorIs(t, err, hmm.ErrValidation)
}
