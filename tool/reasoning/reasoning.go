//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package reasoning provides a tool that asks the model for a point-wise,
// logically derived explanation of a question.
package reasoning

import (
	"context"
	"fmt"
	"strings"

	"trpc.group/trpc-go/mathsgpt/log"
	"trpc.group/trpc-go/mathsgpt/model"
	"trpc.group/trpc-go/mathsgpt/tool"
	"trpc.group/trpc-go/mathsgpt/tool/function"
)

const (
	// Name is the tool name shown to the agent.
	Name = "Reasoning Tool"
	// Description tells the agent when to pick this tool.
	Description = "A tool for answering logic-based and reasoning questions."

	promptTemplate = `You are a agent tasked for solving users mathematical question. Logically arrive at the solution and provide a detailed explanation and display it point wise for the question below
Question:%s
Answer:`
)

// NewTool creates the reasoning tool backed by m. Failures are returned as
// "Error: <message>" text.
func NewTool(m model.Model, cfg model.GenerationConfig) tool.CallableTool {
	cfg.Stream = false
	return function.NewFunctionTool(
		func(ctx context.Context, in tool.QueryInput) (out string, err error) {
			defer func() {
				if r := recover(); r != nil {
					out, err = fmt.Sprintf("Error: %v", r), nil
				}
			}()
			return explain(ctx, m, cfg, in.Query), nil
		},
		function.WithName(Name),
		function.WithDescription(Description),
		function.WithPlainTextInput(),
	)
}

func explain(ctx context.Context, m model.Model, cfg model.GenerationConfig, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return "Error: empty question"
	}
	text, err := model.GenerateText(ctx, m, model.NewPromptRequest(fmt.Sprintf(promptTemplate, question), cfg))
	if err != nil {
		log.Warnf("reasoning: model call failed: %v", err)
		return "Error: " + err.Error()
	}
	return strings.TrimSpace(text)
}
