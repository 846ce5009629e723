//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package runner turns a question from a browser session into an agent run
// and records the exchange in the transcript.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/mathsgpt/agent"
	"trpc.group/trpc-go/mathsgpt/event"
	itelemetry "trpc.group/trpc-go/mathsgpt/internal/telemetry"
	"trpc.group/trpc-go/mathsgpt/log"
	"trpc.group/trpc-go/mathsgpt/session"
	"trpc.group/trpc-go/mathsgpt/session/inmemory"
	"trpc.group/trpc-go/mathsgpt/telemetry/metric"
	"trpc.group/trpc-go/mathsgpt/telemetry/trace"
)

// Messages shown to the user when a question is refused.
const (
	WarningEmptyQuestion = "Please enter the question"
	InfoMissingAPIKey    = "Please add your Groq API Key to continue"
)

var (
	// ErrEmptyQuestion is returned for blank questions; the agent is not run.
	ErrEmptyQuestion = errors.New("runner: empty question")
	// ErrMissingAPIKey is returned when the session has no API key; no model is called.
	ErrMissingAPIKey = errors.New("runner: missing API key")
	// ErrBusy is returned when all run slots are taken.
	ErrBusy = errors.New("runner: too many concurrent runs")
	// ErrRunInProgress is returned when the session is still waiting for an answer.
	ErrRunInProgress = errors.New("runner: session already has a run in progress")
	// ErrNoAnswer is returned by Answer when a run ends without a final answer.
	ErrNoAnswer = errors.New("runner: run ended without an answer")
)

// Run outcomes recorded on the runs counter.
const (
	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeCanceled = "canceled"
)

const (
	defaultMaxConcurrentRuns = 16
	defaultChannelBufferSize = 64
)

// Option is a function that configures a Runner.
type Option func(*Options)

// Options is the options for the Runner.
type Options struct {
	sessionService    session.Service
	maxConcurrentRuns int
	channelBufferSize int
	instruments       *metric.Instruments
}

// WithSessionService sets the session service to use.
func WithSessionService(service session.Service) Option {
	return func(opts *Options) {
		opts.sessionService = service
	}
}

// WithMaxConcurrentRuns bounds the number of agent runs in flight.
func WithMaxConcurrentRuns(n int) Option {
	return func(opts *Options) {
		if n > 0 {
			opts.maxConcurrentRuns = n
		}
	}
}

// WithChannelBufferSize sets the buffer size of the returned event channel.
func WithChannelBufferSize(size int) Option {
	return func(opts *Options) {
		if size > 0 {
			opts.channelBufferSize = size
		}
	}
}

// WithInstruments sets the metric instruments. By default they are created
// on the global meter.
func WithInstruments(ins *metric.Instruments) Option {
	return func(opts *Options) {
		opts.instruments = ins
	}
}

// Runner is the interface for running agents.
type Runner interface {
	// Run checks the question, appends it to the transcript and starts the
	// agent. The returned channel carries the agent events and is closed when
	// the run ends; a final event has already been appended to the transcript
	// as an assistant message when it is received.
	Run(ctx context.Context, sessionID string, question string) (<-chan *event.Event, error)

	// Close releases the run pool.
	Close() error
}

// runner runs agents.
type runner struct {
	appName           string
	agent             agent.Agent
	sessionService    session.Service
	pool              *ants.Pool
	channelBufferSize int
	instruments       *metric.Instruments

	mu     sync.Mutex
	active map[string]string // session ID -> invocation ID
}

// NewRunner creates a new Runner.
func NewRunner(appName string, ag agent.Agent, opts ...Option) (Runner, error) {
	options := Options{
		maxConcurrentRuns: defaultMaxConcurrentRuns,
		channelBufferSize: defaultChannelBufferSize,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.sessionService == nil {
		options.sessionService = inmemory.NewSessionService()
	}
	if options.instruments == nil {
		ins, err := metric.NewInstruments(nil)
		if err != nil {
			return nil, err
		}
		options.instruments = ins
	}
	pool, err := ants.NewPool(options.maxConcurrentRuns,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			log.Errorf("runner: agent run panicked: %v", p)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run pool: %w", err)
	}
	return &runner{
		appName:           appName,
		agent:             ag,
		sessionService:    options.sessionService,
		pool:              pool,
		channelBufferSize: options.channelBufferSize,
		instruments:       options.instruments,
		active:            make(map[string]string),
	}, nil
}

// Run implements Runner.
func (r *runner) Run(ctx context.Context, sessionID string, question string) (<-chan *event.Event, error) {
	sess, err := r.sessionService.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(sess.APIKey())
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	inv := agent.NewInvocation(sess.ID, question, apiKey)
	if !r.acquire(inv) {
		return nil, ErrRunInProgress
	}
	out := make(chan *event.Event, r.channelBufferSize)
	if err := r.pool.Submit(func() {
		defer close(out)
		defer r.release(inv)
		r.run(ctx, inv, out)
	}); err != nil {
		r.release(inv)
		if errors.Is(err, ants.ErrPoolOverload) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("failed to schedule run: %w", err)
	}
	return out, nil
}

func (r *runner) run(ctx context.Context, inv *agent.Invocation, out chan<- *event.Event) {
	start := time.Now()
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameInvocation)
	defer span.End()
	span.SetAttributes(
		attribute.String(itelemetry.KeyInvocationID, inv.InvocationID),
		attribute.String(itelemetry.KeySessionID, inv.SessionID),
	)

	outcome := outcomeError
	defer func() {
		r.instruments.Runs.Add(context.WithoutCancel(ctx), 1,
			otelmetric.WithAttributes(attribute.String(itelemetry.KeyOutcome, outcome)))
		r.instruments.RunDuration.Record(context.WithoutCancel(ctx), time.Since(start).Seconds())
		log.Infof("%s: invocation %s finished in %s (%s)", r.appName, inv.InvocationID, time.Since(start), outcome)
	}()

	if err := r.sessionService.AppendMessage(ctx, inv.SessionID,
		session.NewMessage(session.RoleUser, inv.Question)); err != nil {
		r.fail(ctx, span, inv, out, err)
		return
	}

	agentEvents, err := r.agent.Run(ctx, inv)
	if err != nil {
		r.fail(ctx, span, inv, out, err)
		return
	}
	for evt := range agentEvents {
		switch evt.Kind {
		case event.KindFinal:
			if err := r.sessionService.AppendMessage(context.WithoutCancel(ctx), inv.SessionID,
				session.NewMessage(session.RoleAssistant, evt.Content)); err != nil {
				log.Errorf("Failed to append answer to session %s: %v", inv.SessionID, err)
			} else {
				outcome = outcomeSuccess
			}
			// The transcript is complete; the session may ask again.
			r.release(inv)
		case event.KindError:
			span.SetStatus(codes.Error, evt.Error.Message)
		}
		select {
		case out <- evt:
		case <-ctx.Done():
			if outcome != outcomeSuccess {
				outcome = outcomeCanceled
			}
			return
		}
	}
	if outcome != outcomeSuccess && ctx.Err() != nil {
		outcome = outcomeCanceled
	}
}

// acquire marks the session of inv as running. It reports false when the
// session already has a run.
func (r *runner) acquire(inv *agent.Invocation) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[inv.SessionID]; ok {
		return false
	}
	r.active[inv.SessionID] = inv.InvocationID
	return true
}

// release clears the mark set by acquire. It is a no-op once the session
// belongs to a later invocation.
func (r *runner) release(inv *agent.Invocation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[inv.SessionID] == inv.InvocationID {
		delete(r.active, inv.SessionID)
	}
}

func (r *runner) fail(ctx context.Context, span oteltrace.Span, inv *agent.Invocation,
	out chan<- *event.Event, err error) {
	log.Errorf("%s: invocation %s failed: %v", r.appName, inv.InvocationID, err)
	span.SetStatus(codes.Error, err.Error())
	evt := event.NewErrorEvent(inv.InvocationID, r.appName, event.ErrorTypeAgent, err.Error())
	select {
	case out <- evt:
	case <-ctx.Done():
	}
}

// Close implements Runner.
func (r *runner) Close() error {
	r.pool.Release()
	return nil
}

// Answer drains events and returns the final answer. observe, when not nil,
// sees every event before the one that ends the run. An error event is
// returned as its *model.ResponseError.
func Answer(ctx context.Context, events <-chan *event.Event, observe func(*event.Event)) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case evt, ok := <-events:
			if !ok {
				if err := ctx.Err(); err != nil {
					return "", err
				}
				return "", ErrNoAnswer
			}
			if !evt.IsFinal() {
				if observe != nil {
					observe(evt)
				}
				continue
			}
			if evt.Kind == event.KindFinal {
				return evt.Content, nil
			}
			if evt.Error == nil {
				return "", errors.New("agent run failed")
			}
			return "", evt.Error
		}
	}
}
