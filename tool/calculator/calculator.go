//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package calculator provides the math solving tool exposed to the agent.
//
// Plain arithmetic expressions are evaluated locally with expr. Everything
// else is handed to a language model with a solve-step-by-step prompt. The
// tool never fails: every problem is reported inside the returned text as
// "Error: <message>".
package calculator

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"trpc.group/trpc-go/mathsgpt/agent"
	"trpc.group/trpc-go/mathsgpt/log"
	"trpc.group/trpc-go/mathsgpt/model"
	"trpc.group/trpc-go/mathsgpt/tool"
	"trpc.group/trpc-go/mathsgpt/tool/function"
)

const (
	// Name is the tool name shown to the agent.
	Name = "Calculator"
	// Description tells the agent when to pick this tool.
	Description = "Solve math problems and perform calculations. " +
		"Use this for any mathematical question or arithmetic."

	promptTemplate = `You are a math solver. Solve this problem completely and provide the final numerical answer.

Problem: %s

Instructions:
1. Solve the problem step-by-step
2. Show your work
3. End with "The answer is: [number]"

Solution:`

	completionSuffix = "\n\nThis is the complete solution."
	errorPrefix      = "Error: "
)

// arithmetic matches inputs made only of numbers, operators and brackets.
var arithmetic = regexp.MustCompile(`^[0-9\s.+\-*/%^()]+$`)

// Option configures the calculator.
type Option func(*config)

type config struct {
	fastPath  bool
	genConfig model.GenerationConfig
}

// WithExpressionFastPath toggles local evaluation of plain arithmetic.
func WithExpressionFastPath(enabled bool) Option {
	return func(c *config) {
		c.fastPath = enabled
	}
}

// WithGenerationConfig sets the sampling parameters for the model call.
func WithGenerationConfig(cfg model.GenerationConfig) Option {
	return func(c *config) {
		c.genConfig = cfg
	}
}

// Calculator solves math problems.
type Calculator struct {
	model model.Model
	cfg   config
}

// New creates a Calculator backed by m.
func New(m model.Model, opts ...Option) *Calculator {
	cfg := config{fastPath: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.genConfig.Stream = false
	return &Calculator{model: m, cfg: cfg}
}

// NewTool creates the Calculator tool backed by m.
func NewTool(m model.Model, opts ...Option) tool.CallableTool {
	return New(m, opts...).Tool()
}

// Tool exposes c as a text-in/text-out tool.
func (c *Calculator) Tool() tool.CallableTool {
	return function.NewFunctionTool(
		func(ctx context.Context, in tool.QueryInput) (string, error) {
			return c.Solve(ctx, in.Query), nil
		},
		function.WithName(Name),
		function.WithDescription(Description),
		function.WithPlainTextInput(),
	)
}

// Solve returns the worked solution for problem. It never panics and never
// returns an empty string.
func (c *Calculator) Solve(ctx context.Context, problem string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("calculator: invocation %s: recovered from panic: %v", invocationID(ctx), r)
			result = fmt.Sprintf("%s%v", errorPrefix, r)
		}
	}()

	problem = strings.TrimSpace(problem)
	if problem == "" {
		return errorPrefix + "empty math problem"
	}
	if c.cfg.fastPath {
		if answer, ok := evaluate(problem); ok {
			return fmt.Sprintf("%s = %s\n\nThe answer is: %s", problem, answer, answer)
		}
	}
	if c.model == nil {
		return errorPrefix + "no model configured"
	}

	req := model.NewPromptRequest(fmt.Sprintf(promptTemplate, problem), c.cfg.genConfig)
	text, err := model.GenerateText(ctx, c.model, req)
	if err != nil {
		log.Warnf("calculator: invocation %s: model call failed: %v", invocationID(ctx), err)
		return errorPrefix + err.Error()
	}
	text = strings.TrimSpace(text)
	if !strings.Contains(strings.ToLower(text), "answer") {
		text += completionSuffix
	}
	return text
}

func invocationID(ctx context.Context) string {
	if inv, ok := agent.InvocationFromContext(ctx); ok {
		return inv.InvocationID
	}
	return "-"
}

// evaluate computes plain arithmetic locally. "^" is treated as power.
func evaluate(problem string) (string, bool) {
	if !arithmetic.MatchString(problem) || !strings.ContainsAny(problem, "0123456789") {
		return "", false
	}
	program, err := expr.Compile(strings.ReplaceAll(problem, "^", "**"))
	if err != nil {
		return "", false
	}
	out, err := expr.Run(program, nil)
	if err != nil {
		return "", false
	}
	switch v := out.(type) {
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}
