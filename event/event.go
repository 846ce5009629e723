//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package event provides the events an agent streams while it works on a question.
package event

import (
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/mathsgpt/model"
)

// Kind classifies an event.
type Kind string

// Event kinds, in the order they usually appear within one step.
const (
	// KindThought carries the model's reasoning for a step.
	KindThought Kind = "thought"
	// KindAction carries the tool the model picked and its input.
	KindAction Kind = "action"
	// KindObservation carries the tool output fed back to the model.
	KindObservation Kind = "observation"
	// KindFinal carries the final answer. It is always the last event of a successful run.
	KindFinal Kind = "final"
	// KindError carries a failure. It ends the run.
	KindError Kind = "error"
)

// Error types carried in Event.Error.Type.
const (
	ErrorTypeAgent = "agent_error"
	ErrorTypeModel = model.ErrorTypeAPIError
	ErrorTypeParse = "parse_error"
)

// Event represents one streamed step of an agent run.
type Event struct {
	// ID is the unique identifier of the event.
	ID string `json:"id"`
	// InvocationID is the invocation ID of the event.
	InvocationID string `json:"invocationId"`
	// Author is the author of the event.
	Author string `json:"author"`
	// Kind classifies the event.
	Kind Kind `json:"kind"`
	// Step is the 1-based loop iteration the event belongs to.
	Step int `json:"step"`
	// Content is the text of a thought, observation or final answer.
	Content string `json:"content,omitempty"`
	// Tool is the tool name of an action or observation.
	Tool string `json:"tool,omitempty"`
	// ToolInput is the input of an action.
	ToolInput string `json:"toolInput,omitempty"`
	// Usage is the token usage of the model call behind a thought.
	Usage *model.Usage `json:"usage,omitempty"`
	// Error is set on error events.
	Error *model.ResponseError `json:"error,omitempty"`
	// Timestamp is the timestamp of the event.
	Timestamp time.Time `json:"timestamp"`
}

// Option is a function that can be used to configure the Event.
type Option func(*Event)

// WithStep sets the step of the event.
func WithStep(step int) Option {
	return func(e *Event) {
		e.Step = step
	}
}

// WithContent sets the text of the event.
func WithContent(content string) Option {
	return func(e *Event) {
		e.Content = content
	}
}

// WithTool sets the tool name and input of the event.
func WithTool(name, input string) Option {
	return func(e *Event) {
		e.Tool = name
		e.ToolInput = input
	}
}

// WithUsage sets the token usage of the event.
func WithUsage(usage *model.Usage) Option {
	return func(e *Event) {
		e.Usage = usage
	}
}

// New creates a new Event with generated ID and timestamp.
func New(invocationID, author string, kind Kind, opts ...Option) *Event {
	e := &Event{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		InvocationID: invocationID,
		Author:       author,
		Kind:         kind,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewErrorEvent creates a new error Event with the specified error details.
func NewErrorEvent(invocationID, author, errorType, errorMessage string, opts ...Option) *Event {
	e := New(invocationID, author, KindError, opts...)
	e.Error = &model.ResponseError{
		Type:    errorType,
		Message: errorMessage,
	}
	return e
}

// IsFinal reports whether e ends a run.
func (e *Event) IsFinal() bool {
	return e != nil && (e.Kind == KindFinal || e.Kind == KindError)
}

// Clone creates a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Usage != nil {
		u := *e.Usage
		clone.Usage = &u
	}
	if e.Error != nil {
		er := *e.Error
		clone.Error = &er
	}
	return &clone
}
