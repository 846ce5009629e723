//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package react

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Action(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		tool  string
		input string
	}{
		{
			name:  "plain",
			text:  "I should add them.\nAction: Calculator\nAction Input: 2 + 2",
			tool:  "Calculator",
			input: "2 + 2",
		},
		{
			name:  "quoted input",
			text:  "Thought: look it up\nAction: Wikipedia\nAction Input: \"Leonhard Euler\"",
			tool:  "Wikipedia",
			input: "Leonhard Euler",
		},
		{
			name:  "numbered",
			text:  "Action 1: Calculator\nAction 1 Input 1: 6*7 ",
			tool:  "Calculator",
			input: "6*7",
		},
		{
			name:  "multiline input",
			text:  "Action:   Reasoning Tool  \nAction Input: first line\nsecond line",
			tool:  "Reasoning Tool",
			input: "first line\nsecond line",
		},
		{
			name:  "trailing newline kept",
			text:  "Action: Calculator\nAction Input: 2 + 2\n",
			tool:  "Calculator",
			input: "2 + 2\n",
		},
		{
			name:  "trailing tab kept",
			text:  "Action: Calculator\nAction Input: 6*7\t",
			tool:  "Calculator",
			input: "6*7\t",
		},
		{
			name:  "spaces around quotes",
			text:  "Action: Wikipedia\nAction Input: \"Euler\"  ",
			tool:  "Wikipedia",
			input: "Euler",
		},
		{
			name:  "quoted newline",
			text:  "Action: Wikipedia\nAction Input: \"Euler\"\n",
			tool:  "Wikipedia",
			input: "\"Euler\"\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			require.NoError(t, err)
			require.NotNil(t, got.Action)
			assert.Nil(t, got.Finish)
			assert.Equal(t, tt.tool, got.Action.Tool)
			assert.Equal(t, tt.input, got.Action.Input)
			assert.Equal(t, tt.text, got.Action.Log)
		})
	}
}

func TestParse_Finish(t *testing.T) {
	got, err := Parse("I now know the final answer\nFinal Answer: 42 apples")
	require.NoError(t, err)
	require.NotNil(t, got.Finish)
	assert.Nil(t, got.Action)
	assert.Equal(t, "42 apples", got.Finish.Output)
}

func TestParse_FinishBeforeHallucinatedAction(t *testing.T) {
	text := "Final Answer: 7\n\nThought: let me check\nAction: Calculator\nAction Input: 3+4"
	got, err := Parse(text)
	require.NoError(t, err)
	require.NotNil(t, got.Finish)
	assert.Equal(t, "7", got.Finish.Output)
	assert.Equal(t, "Final Answer: 7", got.Finish.Log)
}

func TestParse_ActionThenFinalAnswer(t *testing.T) {
	_, err := Parse("Action: Calculator\nAction Input: 3+4\nFinal Answer: 7")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputParse))
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.SendToLLM)
	assert.Equal(t, InvalidResponseMessage, perr.Observation)
}

func TestParse_MissingAction(t *testing.T) {
	_, err := Parse("I am not sure what to do here")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.SendToLLM)
	assert.Equal(t, MissingActionMessage, perr.Observation)
	assert.Equal(t, "I am not sure what to do here", perr.LLMOutput)
	assert.Contains(t, perr.Error(), "Could not parse LLM output")
}

func TestParse_MissingActionInput(t *testing.T) {
	_, err := Parse("Thought: use the calculator\nAction: Calculator")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.SendToLLM)
	assert.Equal(t, MissingActionInputMessage, perr.Observation)
}
