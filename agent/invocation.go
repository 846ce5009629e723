//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"context"

	"github.com/google/uuid"
)

// Invocation is one question handed to an agent.
type Invocation struct {
	// InvocationID is the ID of the invocation.
	InvocationID string
	// SessionID is the transcript the question belongs to.
	SessionID string
	// Question is the user's question, already trimmed.
	Question string
	// APIKey is the key the user entered. It is only used for model calls
	// made during this invocation.
	APIKey string `json:"-"`
}

// NewInvocation creates an invocation with a fresh ID.
func NewInvocation(sessionID, question, apiKey string) *Invocation {
	return &Invocation{
		InvocationID: uuid.NewString(),
		SessionID:    sessionID,
		Question:     question,
		APIKey:       apiKey,
	}
}

type invocationKey struct{}

// NewContextWithInvocation returns a context carrying invocation, so tools
// can find out which question they serve.
func NewContextWithInvocation(ctx context.Context, invocation *Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, invocation)
}

// InvocationFromContext returns the invocation from the context.
func InvocationFromContext(ctx context.Context) (*Invocation, bool) {
	invocation, ok := ctx.Value(invocationKey{}).(*Invocation)
	return invocation, ok
}
