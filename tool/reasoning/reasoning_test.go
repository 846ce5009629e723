//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package reasoning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/mathsgpt/model"
	"trpc.group/trpc-go/mathsgpt/tool"
)

type promptModel struct {
	reply  string
	err    error
	prompt string
}

func (p *promptModel) GenerateContent(_ context.Context, req *model.Request) (<-chan *model.Response, error) {
	p.prompt = req.Messages[0].Content
	if p.err != nil {
		return nil, p.err
	}
	ch := make(chan *model.Response, 1)
	ch <- &model.Response{Done: true, Choices: []model.Choice{{Message: model.NewAssistantMessage(p.reply)}}}
	close(ch)
	return ch, nil
}

func (p *promptModel) Info() model.Info { return model.Info{Name: "prompt"} }

func TestReasoningTool(t *testing.T) {
	m := &promptModel{reply: " 1. Start with 10\n2. Subtract 3\nAnswer: 7 "}
	rt := NewTool(m, model.GenerationConfig{})
	assert.Equal(t, Name, rt.Declaration().Name)

	got, err := tool.CallText(context.Background(), rt, "10 birds, 3 fly away")
	require.NoError(t, err)
	assert.Equal(t, "1. Start with 10\n2. Subtract 3\nAnswer: 7", got)
	assert.Contains(t, m.prompt, "display it point wise")
	assert.Contains(t, m.prompt, "Question:10 birds, 3 fly away\nAnswer:")
}

func TestReasoningTool_Errors(t *testing.T) {
	rt := NewTool(&promptModel{err: errors.New("timeout")}, model.GenerationConfig{})
	got, err := tool.CallText(context.Background(), rt, "why")
	require.NoError(t, err)
	assert.Equal(t, "Error: failed to generate content: timeout", got)

	got, err = tool.CallText(context.Background(), rt, "  ")
	require.NoError(t, err)
	assert.Equal(t, "Error: empty question", got)

	got, err = tool.CallText(context.Background(), NewTool(nil, model.GenerationConfig{}), "why")
	require.NoError(t, err)
	assert.Equal(t, "Error: model is nil", got)
}
