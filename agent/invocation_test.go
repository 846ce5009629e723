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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvocation(t *testing.T) {
	a := NewInvocation("s1", "What is 2+2?", "gsk_x")
	b := NewInvocation("s1", "What is 2+2?", "gsk_x")
	assert.NotEmpty(t, a.InvocationID)
	assert.NotEqual(t, a.InvocationID, b.InvocationID)
	assert.Equal(t, "s1", a.SessionID)
	assert.Equal(t, "What is 2+2?", a.Question)
	assert.Equal(t, "gsk_x", a.APIKey)
}

func TestInvocationContext(t *testing.T) {
	ctx := context.Background()
	_, ok := InvocationFromContext(ctx)
	assert.False(t, ok)

	inv := NewInvocation("s", "q", "k")
	got, ok := InvocationFromContext(NewContextWithInvocation(ctx, inv))
	require.True(t, ok)
	assert.Same(t, inv, got)
}

func TestInvocationHidesAPIKey(t *testing.T) {
	bts, err := json.Marshal(NewInvocation("s", "q", "secret"))
	require.NoError(t, err)
	assert.NotContains(t, string(bts), "secret")
}
