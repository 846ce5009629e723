//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package react implements a zero-shot ReAct agent: the model alternates
// between thoughts and tool actions until it states a final answer or the
// iteration and time budget runs out.
package react

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"

	"trpc.group/trpc-go/mathsgpt/agent"
	"trpc.group/trpc-go/mathsgpt/event"
	itelemetry "trpc.group/trpc-go/mathsgpt/internal/telemetry"
	"trpc.group/trpc-go/mathsgpt/log"
	"trpc.group/trpc-go/mathsgpt/model"
	"trpc.group/trpc-go/mathsgpt/telemetry/metric"
	"trpc.group/trpc-go/mathsgpt/telemetry/trace"
	"trpc.group/trpc-go/mathsgpt/tool"
)

// EarlyStopping decides what a run returns when the budget is exhausted.
type EarlyStopping string

const (
	// EarlyStoppingGenerate asks the model for one last answer.
	EarlyStoppingGenerate EarlyStopping = "generate"
	// EarlyStoppingForce returns StoppedMessage without another model call.
	EarlyStoppingForce EarlyStopping = "force"
)

// StoppedMessage is the answer of a run stopped with EarlyStoppingForce.
const StoppedMessage = "Agent stopped due to iteration limit or time limit."

// ExceptionTool is the pseudo tool name recorded for unparsable output.
const ExceptionTool = "_Exception"

const (
	defaultMaxIterations     = 4
	defaultMaxExecutionTime  = 30 * time.Second
	defaultChannelBufferSize = 64
)

var (
	// ErrNoTools is returned by Run when the agent has no tools.
	ErrNoTools = errors.New("react: agent has no tools")
	// ErrNoModel is returned by Run when the agent has no model.
	ErrNoModel = errors.New("react: agent has no model")

	errNilInvocation = errors.New("react: invocation is nil")
)

// Option configures the Agent.
type Option func(*options)

type options struct {
	model               model.Model
	description         string
	tools               []tool.CallableTool
	genConfig           model.GenerationConfig
	maxIterations       int
	maxExecutionTime    time.Duration
	earlyStopping       EarlyStopping
	handleParsingErrors bool
	channelBufferSize   int
	instruments         *metric.Instruments
}

// WithModel sets the model that drives the loop.
func WithModel(m model.Model) Option {
	return func(opts *options) {
		opts.model = m
	}
}

// WithDescription sets the agent description.
func WithDescription(description string) Option {
	return func(opts *options) {
		opts.description = description
	}
}

// WithTools sets the tools, in the order they are listed to the model.
func WithTools(tools ...tool.CallableTool) Option {
	return func(opts *options) {
		opts.tools = append(opts.tools, tools...)
	}
}

// WithGenerationConfig sets sampling parameters. Stop sequences are always
// replaced by the loop's own.
func WithGenerationConfig(cfg model.GenerationConfig) Option {
	return func(opts *options) {
		opts.genConfig = cfg
	}
}

// WithMaxIterations caps the number of thought/action steps. Zero means no cap.
func WithMaxIterations(n int) Option {
	return func(opts *options) {
		if n >= 0 {
			opts.maxIterations = n
		}
	}
}

// WithMaxExecutionTime caps the wall time of the steps. Zero means no cap.
func WithMaxExecutionTime(d time.Duration) Option {
	return func(opts *options) {
		if d >= 0 {
			opts.maxExecutionTime = d
		}
	}
}

// WithEarlyStopping sets the early stopping method. Unknown values are ignored.
func WithEarlyStopping(method EarlyStopping) Option {
	return func(opts *options) {
		switch method {
		case EarlyStoppingGenerate, EarlyStoppingForce:
			opts.earlyStopping = method
		}
	}
}

// WithHandleParsingErrors feeds unparsable output back to the model instead
// of failing the run.
func WithHandleParsingErrors(handle bool) Option {
	return func(opts *options) {
		opts.handleParsingErrors = handle
	}
}

// WithChannelBufferSize sets the buffer size of the event channel.
func WithChannelBufferSize(size int) Option {
	return func(opts *options) {
		if size > 0 {
			opts.channelBufferSize = size
		}
	}
}

// WithInstruments records tool calls on the given instruments.
func WithInstruments(ins *metric.Instruments) Option {
	return func(opts *options) {
		opts.instruments = ins
	}
}

// Agent is a zero-shot ReAct agent.
type Agent struct {
	name                string
	description         string
	model               model.Model
	tools               []tool.CallableTool
	toolsByName         map[string]tool.CallableTool
	toolNames           []string
	prompt              promptTemplate
	genConfig           model.GenerationConfig
	maxIterations       int
	maxExecutionTime    time.Duration
	earlyStopping       EarlyStopping
	handleParsingErrors bool
	channelBufferSize   int
	instruments         *metric.Instruments
}

// New creates a ReAct agent.
func New(name string, opts ...Option) *Agent {
	o := &options{
		maxIterations:       defaultMaxIterations,
		maxExecutionTime:    defaultMaxExecutionTime,
		earlyStopping:       EarlyStoppingGenerate,
		handleParsingErrors: true,
		channelBufferSize:   defaultChannelBufferSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	a := &Agent{
		name:                name,
		description:         o.description,
		model:               o.model,
		tools:               o.tools,
		toolsByName:         make(map[string]tool.CallableTool, len(o.tools)),
		genConfig:           o.genConfig,
		maxIterations:       o.maxIterations,
		maxExecutionTime:    o.maxExecutionTime,
		earlyStopping:       o.earlyStopping,
		handleParsingErrors: o.handleParsingErrors,
		channelBufferSize:   o.channelBufferSize,
		instruments:         o.instruments,
	}
	for _, t := range o.tools {
		n := t.Declaration().Name
		a.toolsByName[n] = t
		a.toolNames = append(a.toolNames, n)
	}
	a.prompt = newPromptTemplate(a.Tools())
	a.genConfig.Stop = stopSequences
	a.genConfig.Stream = false
	return a
}

// MaxIterations returns the step limit; 0 means unbounded.
func (a *Agent) MaxIterations() int { return a.maxIterations }

// MaxExecutionTime returns the wall-clock limit of a run; 0 means unbounded.
func (a *Agent) MaxExecutionTime() time.Duration { return a.maxExecutionTime }

// Info implements agent.Agent.
func (a *Agent) Info() agent.Info {
	return agent.Info{Name: a.name, Description: a.description}
}

// Tools implements agent.Agent.
func (a *Agent) Tools() []tool.Tool {
	tools := make([]tool.Tool, 0, len(a.tools))
	for _, t := range a.tools {
		tools = append(tools, t)
	}
	return tools
}

// Run implements agent.Agent. The events of one run are: for each step a
// thought, then either an action and its observation or the final answer.
// A failed run ends with an error event instead.
func (a *Agent) Run(ctx context.Context, invocation *agent.Invocation) (<-chan *event.Event, error) {
	if invocation == nil {
		return nil, errNilInvocation
	}
	if a.model == nil {
		return nil, ErrNoModel
	}
	if len(a.tools) == 0 {
		return nil, ErrNoTools
	}
	ctx = agent.NewContextWithInvocation(ctx, invocation)
	if invocation.APIKey != "" {
		ctx = model.ContextWithAPIKey(ctx, invocation.APIKey)
	}
	ch := make(chan *event.Event, a.channelBufferSize)
	go func() {
		defer close(ch)
		a.loop(ctx, invocation, ch)
	}()
	return ch, nil
}

// stepOutcome tells the loop what a step ended with.
type stepOutcome int

const (
	stepContinue stepOutcome = iota
	stepDone
	stepOutOfTime
)

func (a *Agent) loop(ctx context.Context, inv *agent.Invocation, ch chan<- *event.Event) {
	start := time.Now()
	stepCtx := ctx
	if a.maxExecutionTime > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, a.maxExecutionTime)
		defer cancel()
	}

	var steps []step
	iteration := 0
	for a.shouldContinue(iteration, time.Since(start)) {
		iteration++
		var outcome stepOutcome
		steps, outcome = a.runStep(stepCtx, ctx, inv, iteration, steps, ch)
		switch outcome {
		case stepDone:
			return
		case stepOutOfTime:
			log.Debugf("react: invocation %s ran out of time at step %d", inv.InvocationID, iteration)
			a.stop(ctx, inv, iteration+1, steps, ch)
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	log.Debugf("react: invocation %s stopped after %d steps", inv.InvocationID, iteration)
	a.stop(ctx, inv, iteration+1, steps, ch)
}

func (a *Agent) shouldContinue(iteration int, elapsed time.Duration) bool {
	if a.maxIterations > 0 && iteration >= a.maxIterations {
		return false
	}
	if a.maxExecutionTime > 0 && elapsed >= a.maxExecutionTime {
		return false
	}
	return true
}

// runStep asks the model for the next thought and acts on it. stepCtx carries
// the time budget; ctx is the run context.
func (a *Agent) runStep(
	stepCtx, ctx context.Context,
	inv *agent.Invocation,
	n int,
	steps []step,
	ch chan<- *event.Event,
) ([]step, stepOutcome) {
	stepCtx, span := trace.Tracer.Start(stepCtx, itelemetry.SpanNameReActStep)
	defer span.End()
	itelemetry.TraceStep(span, inv.InvocationID, a.model.Info().Name, n)

	text, usage, err := a.predict(stepCtx, a.prompt.render(inv.Question, scratchpad(steps)))
	if err != nil {
		if ctx.Err() == nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			return steps, stepOutOfTime
		}
		span.SetStatus(codes.Error, err.Error())
		a.emit(ctx, ch, a.errorEvent(inv, n, err))
		return steps, stepDone
	}
	a.emit(ctx, ch, event.New(inv.InvocationID, a.name, event.KindThought,
		event.WithStep(n), event.WithContent(text), event.WithUsage(usage)))

	parsed, err := Parse(text)
	if err != nil {
		var perr *ParseError
		if !a.handleParsingErrors || !errors.As(err, &perr) {
			span.SetStatus(codes.Error, err.Error())
			a.emit(ctx, ch, event.NewErrorEvent(inv.InvocationID, a.name, event.ErrorTypeParse,
				err.Error(), event.WithStep(n)))
			return steps, stepDone
		}
		log.Debugf("react: invocation %s step %d: %v", inv.InvocationID, n, err)
		action, observation := recoverParseError(perr)
		a.emit(ctx, ch, event.New(inv.InvocationID, a.name, event.KindObservation,
			event.WithStep(n), event.WithTool(ExceptionTool, ""), event.WithContent(observation)))
		return append(steps, step{action: action, observation: observation}), stepContinue
	}

	if parsed.Finish != nil {
		a.emit(ctx, ch, event.New(inv.InvocationID, a.name, event.KindFinal,
			event.WithStep(n), event.WithContent(parsed.Finish.Output)))
		return steps, stepDone
	}

	action := *parsed.Action
	a.emit(ctx, ch, event.New(inv.InvocationID, a.name, event.KindAction,
		event.WithStep(n), event.WithTool(action.Tool, action.Input)))
	observation := a.callTool(stepCtx, action)
	if ctx.Err() == nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		return steps, stepOutOfTime
	}
	a.emit(ctx, ch, event.New(inv.InvocationID, a.name, event.KindObservation,
		event.WithStep(n), event.WithTool(action.Tool, ""), event.WithContent(observation)))
	return append(steps, step{action: action, observation: observation}), stepContinue
}

// recoverParseError turns a parse failure into a pseudo action whose
// observation tells the model what went wrong.
func recoverParseError(perr *ParseError) (Action, string) {
	observation := InvalidResponseMessage
	text := perr.Error()
	if perr.SendToLLM {
		observation = perr.Observation
		text = perr.LLMOutput
	}
	return Action{Tool: ExceptionTool, Input: observation, Log: text}, observation
}

// callTool runs the named tool. Tool failures become the observation.
func (a *Agent) callTool(ctx context.Context, action Action) string {
	t, ok := a.toolsByName[action.Tool]
	if !ok {
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].",
			action.Tool, strings.Join(a.toolNames, ", "))
	}
	ctx, span := trace.Tracer.Start(ctx, itelemetry.NewToolSpanName(action.Tool))
	defer span.End()
	if a.instruments != nil {
		a.instruments.ToolCalls.Add(ctx, 1,
			otelmetric.WithAttributes(attribute.String(itelemetry.KeyTool, action.Tool)))
	}

	observation, err := tool.CallText(ctx, t, action.Input)
	if err != nil {
		log.Warnf("react: tool %s failed: %v", action.Tool, err)
		span.SetStatus(codes.Error, err.Error())
		observation = "Error: " + err.Error()
	}
	itelemetry.TraceToolCall(span, action.Tool, action.Input, observation)
	return observation
}

// stop produces the answer of a run whose budget is exhausted.
func (a *Agent) stop(ctx context.Context, inv *agent.Invocation, n int, steps []step, ch chan<- *event.Event) {
	if a.earlyStopping == EarlyStoppingForce {
		a.emit(ctx, ch, event.New(inv.InvocationID, a.name, event.KindFinal,
			event.WithStep(n), event.WithContent(StoppedMessage)))
		return
	}
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameReActStep)
	defer span.End()
	itelemetry.TraceStep(span, inv.InvocationID, a.model.Info().Name, n)

	text, usage, err := a.predict(ctx, a.prompt.render(inv.Question, scratchpad(steps)+stopGeneratePrompt))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		a.emit(ctx, ch, a.errorEvent(inv, n, err))
		return
	}
	a.emit(ctx, ch, event.New(inv.InvocationID, a.name, event.KindThought,
		event.WithStep(n), event.WithContent(text), event.WithUsage(usage)))
	answer := text
	if parsed, err := Parse(text); err == nil && parsed.Finish != nil {
		answer = parsed.Finish.Output
	}
	a.emit(ctx, ch, event.New(inv.InvocationID, a.name, event.KindFinal,
		event.WithStep(n), event.WithContent(answer)))
}

// predict makes one non-streaming completion with the loop's stop sequences.
func (a *Agent) predict(ctx context.Context, prompt string) (string, *model.Usage, error) {
	c, err := model.Generate(ctx, a.model, model.NewPromptRequest(prompt, a.genConfig))
	if err != nil {
		return "", nil, err
	}
	return c.Text, c.Usage, nil
}

func (a *Agent) errorEvent(inv *agent.Invocation, n int, err error) *event.Event {
	errType := event.ErrorTypeAgent
	var rspErr *model.ResponseError
	if errors.As(err, &rspErr) {
		errType = event.ErrorTypeModel
		if rspErr.Type != "" {
			errType = rspErr.Type
		}
		return event.NewErrorEvent(inv.InvocationID, a.name, errType, rspErr.Message, event.WithStep(n))
	}
	return event.NewErrorEvent(inv.InvocationID, a.name, errType, err.Error(), event.WithStep(n))
}

func (a *Agent) emit(ctx context.Context, ch chan<- *event.Event, evt *event.Event) {
	select {
	case ch <- evt:
	case <-ctx.Done():
	}
}
