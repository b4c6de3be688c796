// Package extraction turns spoken transcripts into expense records and budget
// plans. Each call first asks the external language service; a reachable
// service that returns unusable output degrades to deterministic keyword rules.
package extraction

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/voice-budget/internal/domain"
	"github.com/dvloznov/voice-budget/internal/logger"
)

// Engine is safe for concurrent use. The session is the only shared state:
// Configure replaces it, extraction calls read it once at the start.
type Engine struct {
	mu      sync.RWMutex
	session TextGenerator

	factory  SessionFactory
	clock    func() time.Time
	log      zerolog.Logger
	recorder RunRecorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithSessionFactory replaces the Gemini session factory.
func WithSessionFactory(f SessionFactory) Option {
	return func(e *Engine) { e.factory = f }
}

// WithClock sets the source of "today".
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger sets the logger used when the call context carries none.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRecorder receives a Run for every extraction call.
func WithRecorder(r RunRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine returns an unconfigured Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		factory: NewGeminiSessionFactory(GeminiOptions{}),
		clock:   time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configure builds a new session from credential. On any failure the engine is
// left unconfigured, even if an earlier session existed.
func (e *Engine) Configure(ctx context.Context, credential string) bool {
	log := logger.FromContext(ctx, e.log)

	session, err := e.newSession(ctx, strings.TrimSpace(credential))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to configure extraction service")
		e.setSession(nil)
		return false
	}

	e.setSession(session)
	log.Info().Str("model", session.ModelName()).Msg("Extraction service configured")
	return true
}

// IsReady reports whether a prior Configure succeeded.
func (e *Engine) IsReady() bool {
	return e.currentSession() != nil
}

func (e *Engine) newSession(ctx context.Context, credential string) (session TextGenerator, err error) {
	if credential == "" {
		return nil, fmt.Errorf("credential is empty")
	}

	defer func() {
		if r := recover(); r != nil {
			session, err = nil, fmt.Errorf("session factory panicked: %v", r)
		}
	}()

	session, err = e.factory(ctx, credential)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session factory returned no session")
	}
	return session, nil
}

func (e *Engine) setSession(s TextGenerator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = s
}

func (e *Engine) currentSession() TextGenerator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// today is the current calendar date in UTC.
func (e *Engine) today() civil.Date {
	return civil.DateOf(e.clock().UTC())
}

// ExtractExpense converts transcript into an ExpenseRecord. The returned error,
// if any, is an *Error of kind KindServiceNotConfigured or KindServiceCallFailed.
func (e *Engine) ExtractExpense(ctx context.Context, transcript string) (domain.ExpenseRecord, error) {
	today := e.today()
	call := e.begin(ctx, SchemaExpense, transcript)

	obj, err := call.request(ctx, func() string { return buildExpensePrompt(transcript, today) })
	if err != nil {
		return domain.ExpenseRecord{}, err
	}
	if obj == nil {
		rec := FallbackExpense(transcript, today)
		call.finish(ctx, OutcomeFallback, nil)
		return rec, nil
	}

	rec := normalizeExpense(obj, transcript, today)
	call.finish(ctx, OutcomeModel, nil)
	return rec, nil
}

// ExtractBudget converts transcript into a BudgetPlan with at least one item.
// Errors follow the same contract as ExtractExpense.
func (e *Engine) ExtractBudget(ctx context.Context, transcript string) (domain.BudgetPlan, error) {
	call := e.begin(ctx, SchemaBudget, transcript)

	obj, err := call.request(ctx, func() string { return buildBudgetPrompt(transcript) })
	if err != nil {
		return domain.BudgetPlan{}, err
	}
	if obj == nil {
		plan := FallbackBudget(transcript)
		call.finish(ctx, OutcomeFallback, nil)
		return plan, nil
	}

	plan := normalizeBudget(obj, transcript)
	call.finish(ctx, OutcomeModel, nil)
	return plan, nil
}

// call tracks one extraction from start to its recorded Run.
type call struct {
	engine  *Engine
	session TextGenerator
	log     zerolog.Logger
	run     Run
}

func (e *Engine) begin(ctx context.Context, schema Schema, transcript string) *call {
	runID := uuid.NewString()
	c := &call{
		engine:  e,
		session: e.currentSession(),
		log: logger.FromContext(ctx, e.log).With().
			Str("run_id", runID).
			Str("schema", string(schema)).
			Int("transcript_len", len(transcript)).
			Logger(),
		run: Run{
			RunID:      runID,
			Schema:     schema,
			Transcript: transcript,
			StartedAt:  e.clock(),
		},
	}
	if c.session != nil {
		c.run.ModelName = c.session.ModelName()
	}
	return c
}

// request performs the service call. It returns an error for the two fatal
// kinds, a nil object when the response must be replaced by the fallback, and
// the decoded object otherwise.
func (c *call) request(ctx context.Context, prompt func() string) (map[string]any, error) {
	if c.session == nil {
		err := newError(KindServiceNotConfigured, nil)
		c.finish(ctx, OutcomeError, err)
		return nil, err
	}

	raw, err := generate(ctx, c.session, prompt())
	if err != nil {
		callErr := newError(KindServiceCallFailed, err)
		c.log.Warn().Err(err).Msg("Extraction service call failed")
		c.finish(ctx, OutcomeError, callErr)
		return nil, callErr
	}
	c.run.RawResponse = raw

	obj, err := parseObject(raw)
	if err != nil {
		c.run.FallbackReason = err.Error()
		c.log.Debug().Err(err).Msg("Unusable model response, using rule-based extraction")
		return nil, nil
	}
	return obj, nil
}

// generate shields the engine from panics inside the session implementation.
func generate(ctx context.Context, s TextGenerator, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("service call panicked: %v", r)
		}
	}()
	return s.GenerateText(ctx, prompt)
}

func (c *call) finish(ctx context.Context, outcome Outcome, err *Error) {
	c.run.Outcome = outcome
	c.run.Duration = c.engine.clock().Sub(c.run.StartedAt)
	if err != nil {
		c.run.ErrorKind = err.Kind
		c.run.Error = err.Error()
	}

	c.log.Debug().
		Str("outcome", string(outcome)).
		Dur("duration", c.run.Duration).
		Msg("Extraction finished")

	if c.engine.recorder == nil {
		return
	}
	if recErr := c.engine.recorder.RecordRun(ctx, c.run); recErr != nil {
		c.log.Error().Err(recErr).Msg("Failed to record extraction run")
	}
}
