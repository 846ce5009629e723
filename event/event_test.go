//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/mathsgpt/model"
)

func TestNew(t *testing.T) {
	e := New("inv-1", "mathsgpt", KindAction,
		WithStep(2),
		WithTool("Calculator", "2+2"),
		WithUsage(&model.Usage{TotalTokens: 10}),
	)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "inv-1", e.InvocationID)
	assert.Equal(t, KindAction, e.Kind)
	assert.Equal(t, 2, e.Step)
	assert.Equal(t, "Calculator", e.Tool)
	assert.Equal(t, "2+2", e.ToolInput)
	assert.False(t, e.IsFinal())

	other := New("inv-1", "mathsgpt", KindThought)
	assert.NotEqual(t, e.ID, other.ID)
}

func TestNewErrorEvent(t *testing.T) {
	e := NewErrorEvent("inv", "a", ErrorTypeModel, "invalid api key", WithStep(1))
	require.NotNil(t, e.Error)
	assert.Equal(t, KindError, e.Kind)
	assert.Equal(t, "api_error", e.Error.Type)
	assert.Equal(t, "invalid api key", e.Error.Message)
	assert.True(t, e.IsFinal())
	assert.True(t, New("i", "a", KindFinal).IsFinal())
	assert.False(t, (*Event)(nil).IsFinal())
}

func TestClone(t *testing.T) {
	e := NewErrorEvent("inv", "a", ErrorTypeAgent, "boom", WithUsage(&model.Usage{TotalTokens: 1}))
	c := e.Clone()
	c.Error.Message = "changed"
	c.Usage.TotalTokens = 5
	assert.Equal(t, "boom", e.Error.Message)
	assert.Equal(t, 1, e.Usage.TotalTokens)
	assert.Nil(t, (*Event)(nil).Clone())
}

func TestJSON(t *testing.T) {
	e := New("inv", "a", KindObservation, WithTool("Wikipedia", ""), WithContent("Page: Pi"))
	bts, err := json.Marshal(e)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(bts, &m))
	assert.Equal(t, "observation", m["kind"])
	assert.Equal(t, "Page: Pi", m["content"])
	assert.NotContains(t, m, "toolInput")
	assert.NotContains(t, m, "error")
}
