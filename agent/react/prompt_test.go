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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"trpc.group/trpc-go/mathsgpt/tool"
)

func TestPromptTemplate(t *testing.T) {
	p := newPromptTemplate([]tool.Tool{
		newEchoTool("Wikipedia", "Search Wikipedia."),
		newEchoTool("Calculator", "Do math."),
	})
	got := p.render("What is 2+2?", "")

	assert.True(t, strings.HasPrefix(got, promptPrefix+"\n\nWikipedia: Search Wikipedia.\nCalculator: Do math.\n\n"))
	assert.Contains(t, got, "Action: the action to take, should be one of [Wikipedia, Calculator]")
	assert.True(t, strings.HasSuffix(got, "Begin!\n\nQuestion: What is 2+2?\nThought:"))
}

func TestScratchpad(t *testing.T) {
	assert.Equal(t, "", scratchpad(nil))
	got := scratchpad([]step{
		{action: Action{Log: " add\nAction: Calculator\nAction Input: 2+2"}, observation: "4"},
		{action: Action{Log: " check\nAction: Calculator\nAction Input: 4*1"}, observation: "4"},
	})
	want := " add\nAction: Calculator\nAction Input: 2+2\nObservation: 4\nThought:" +
		" check\nAction: Calculator\nAction Input: 4*1\nObservation: 4\nThought:"
	assert.Equal(t, want, got)
}
