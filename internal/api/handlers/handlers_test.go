package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/voice-budget/internal/extraction"
	"github.com/dvloznov/voice-budget/internal/jobs"
	"github.com/dvloznov/voice-budget/internal/jobs/inmemory"
)

// fakeGenerator answers every prompt with a fixed response or error.
type fakeGenerator struct {
	text string
	err  error
}

func (f fakeGenerator) GenerateText(context.Context, string) (string, error) { return f.text, f.err }
func (f fakeGenerator) ModelName() string                                    { return "fake" }

type testServer struct {
	engine *extraction.Engine
	store  *inmemory.Store
	queue  *inmemory.Queue
	mux    *http.ServeMux
}

// newTestServer wires the router to a real engine whose sessions are gen.
// Only the key "good-key" configures successfully.
func newTestServer(t *testing.T, gen extraction.TextGenerator) *testServer {
	t.Helper()

	engine := extraction.NewEngine(
		extraction.WithSessionFactory(func(_ context.Context, key string) (extraction.TextGenerator, error) {
			if key != "good-key" {
				return nil, errors.New("invalid key")
			}
			return gen, nil
		}),
		extraction.WithClock(func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }),
	)

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(10, store, inmemory.WithBackoff(time.Millisecond), inmemory.WithMaxRetries(1))
	require.NoError(t, queue.Start(context.Background(), jobs.NewExtractionHandler(engine)))
	t.Cleanup(func() { _ = queue.Close() })

	return &testServer{
		engine: engine,
		store:  store,
		queue:  queue,
		mux:    NewRouter(engine, store, queue, zerolog.Nop()),
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestConfigEndpoints(t *testing.T) {
	s := newTestServer(t, fakeGenerator{text: "{}"})

	rec := s.do(t, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":false}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/config", `{"api_key":"bad-key"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotContains(t, rec.Body.String(), "bad-key")
	assert.False(t, s.engine.IsReady())

	rec = s.do(t, http.MethodPost, "/api/config", `{"api_key":"good-key"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":true}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/config", `{"api_key":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, s.engine.IsReady(), "bad body leaves the session untouched")
}

func TestExtractExpense_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		gen        extraction.TextGenerator
		configure  bool
		body       string
		wantStatus int
		wantKind   string
	}{
		{
			name:       "not configured",
			gen:        fakeGenerator{text: "{}"},
			body:       `{"transcript":"coffee 5"}`,
			wantStatus: http.StatusPreconditionFailed,
			wantKind:   "service_not_configured",
		},
		{
			name:       "call failed",
			gen:        fakeGenerator{err: errors.New("connection refused")},
			configure:  true,
			body:       `{"transcript":"coffee 5"}`,
			wantStatus: http.StatusBadGateway,
			wantKind:   "service_call_failed",
		},
		{
			name:       "bad body",
			gen:        fakeGenerator{text: "{}"},
			configure:  true,
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "two objects",
			gen:        fakeGenerator{text: "{}"},
			configure:  true,
			body:       `{"transcript":"a"}{"transcript":"b"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.gen)
			if tt.configure {
				require.True(t, s.engine.Configure(context.Background(), "good-key"))
			}

			rec := s.do(t, http.MethodPost, "/api/expenses/extract", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, decode(t, rec)["kind"])
			}
		})
	}
}

func TestExtractExpense_FallbackResult(t *testing.T) {
	s := newTestServer(t, fakeGenerator{text: "not json at all"})
	require.True(t, s.engine.Configure(context.Background(), "good-key"))

	rec := s.do(t, http.MethodPost, "/api/expenses/extract", `{"transcript":"bought coffee for 5 bucks"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	expense := out["expense"].(map[string]any)
	assert.Equal(t, 5.0, expense["amount"])
	assert.Equal(t, "Food & Dining", expense["category"])
	assert.Equal(t, "bought coffee for 5 bucks", expense["description"])
	assert.Equal(t, "2026-10-18", expense["date"])
	assert.Equal(t, "bought coffee for 5 bucks - $5", out["summary"])
}

func TestExtractBudget(t *testing.T) {
	s := newTestServer(t, fakeGenerator{text: "```json\n{\"title\":\"Paris\",\"type\":\"Trip\",\"items\":[{\"name\":\"Hotel\",\"category\":\"Travel\",\"planned\":200},{\"name\":\"Food\",\"category\":\"Food & Dining\",\"planned\":150.5}]}\n```"})
	require.True(t, s.engine.Configure(context.Background(), "good-key"))

	rec := s.do(t, http.MethodPost, "/api/budgets/extract", `{"transcript":"Paris trip, hotel 200, food 150.50"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	budget := out["budget"].(map[string]any)
	assert.Equal(t, "Paris", budget["title"])
	assert.Equal(t, "Trip", budget["type"])
	assert.Len(t, budget["items"], 2)
	assert.Equal(t, 350.5, out["total_planned"])
}

func TestJobs_Lifecycle(t *testing.T) {
	s := newTestServer(t, fakeGenerator{text: `{"amount": 12, "category": "Transportation", "description": "taxi"}`})
	require.True(t, s.engine.Configure(context.Background(), "good-key"))

	rec := s.do(t, http.MethodPost, "/api/jobs", `{"schema":"expense","transcript":"taxi 12"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID, _ := decode(t, rec)["job_id"].(string)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, "/api/jobs/"+jobID, "")
		return rec.Code == http.StatusOK && decode(t, rec)["status"] == string(jobs.JobStatusCompleted)
	}, 2*time.Second, 5*time.Millisecond)

	rec = s.do(t, http.MethodGet, "/api/jobs/"+jobID, "")
	result := decode(t, rec)["result"].(map[string]any)
	assert.Equal(t, "taxi", result["description"])
	assert.Equal(t, 12.0, result["amount"])

	rec = s.do(t, http.MethodGet, "/api/jobs?schema=expense&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["count"])
}

func TestJobs_NotConfiguredFailsWithoutRetry(t *testing.T) {
	s := newTestServer(t, fakeGenerator{text: "{}"})

	rec := s.do(t, http.MethodPost, "/api/jobs", `{"schema":"budget","transcript":"hotel 200"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decode(t, rec)["job_id"].(string)

	var job *jobs.ExtractionJob
	require.Eventually(t, func() bool {
		j, err := s.store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		job = j
		return j.Status == jobs.JobStatusFailed
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, job.RetryCount)
	assert.Equal(t, "service_not_configured", job.ErrorKind)
}

func TestJobs_Validation(t *testing.T) {
	s := newTestServer(t, fakeGenerator{text: "{}"})

	rec := s.do(t, http.MethodPost, "/api/jobs", `{"schema":"invoice","transcript":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/jobs", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/jobs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, fakeGenerator{})

	rec := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, false, out["ready"])
}

func TestJobs_FullQueueReturnsUnavailable(t *testing.T) {
	engine := extraction.NewEngine()
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(1, store) // no workers: the buffer never drains
	t.Cleanup(func() { _ = queue.Close() })
	mux := NewRouter(engine, store, queue, zerolog.Nop())

	post := func(ctx context.Context) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"schema":"expense","transcript":"coffee 4"}`))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusAccepted, post(context.Background()).Code)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- post(ctx) }()

	select {
	case rec := <-done:
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("request still blocked after its deadline")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	assert.NoError(t, queue.Stop(stopCtx))
}
