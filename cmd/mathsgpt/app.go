//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	oai "github.com/openai/openai-go"

	"trpc.group/trpc-go/mathsgpt/agent/react"
	"trpc.group/trpc-go/mathsgpt/config"
	"trpc.group/trpc-go/mathsgpt/log"
	"trpc.group/trpc-go/mathsgpt/model"
	"trpc.group/trpc-go/mathsgpt/model/anthropic"
	"trpc.group/trpc-go/mathsgpt/model/openai"
	"trpc.group/trpc-go/mathsgpt/runner"
	"trpc.group/trpc-go/mathsgpt/server/web"
	"trpc.group/trpc-go/mathsgpt/session/inmemory"
	"trpc.group/trpc-go/mathsgpt/telemetry/metric"
	"trpc.group/trpc-go/mathsgpt/telemetry/trace"
	"trpc.group/trpc-go/mathsgpt/tool"
	"trpc.group/trpc-go/mathsgpt/tool/calculator"
	"trpc.group/trpc-go/mathsgpt/tool/duckduckgo"
	"trpc.group/trpc-go/mathsgpt/tool/reasoning"
	"trpc.group/trpc-go/mathsgpt/tool/wikipedia"
)

const appName = "mathsgpt"

// app is the wired server.
type app struct {
	handler  http.Handler
	model    string
	agent    *react.Agent
	runner   runner.Runner
	sessions *inmemory.SessionService
}

func newApp(cfg *config.Config) (*app, error) {
	m, err := newModel(cfg)
	if err != nil {
		return nil, err
	}
	ins, err := metric.NewInstruments(nil)
	if err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}
	ag := react.New(appName,
		react.WithModel(m),
		react.WithDescription("Solves math and reasoning questions step by step"),
		react.WithTools(newTools(cfg, m)...),
		react.WithMaxIterations(cfg.MaxIterations),
		react.WithMaxExecutionTime(cfg.MaxExecutionTime),
		react.WithEarlyStopping(react.EarlyStopping(cfg.EarlyStopping)),
		react.WithHandleParsingErrors(cfg.HandleParsingErrors),
		react.WithInstruments(ins),
	)
	sessions := inmemory.NewSessionService(inmemory.WithSessionTTL(cfg.SessionTTL))
	rn, err := runner.NewRunner(appName, ag,
		runner.WithSessionService(sessions),
		runner.WithMaxConcurrentRuns(cfg.MaxConcurrentRuns),
		runner.WithInstruments(ins),
	)
	if err != nil {
		_ = sessions.Close()
		return nil, err
	}
	srv, err := web.New(rn,
		web.WithSessionService(sessions),
		web.WithModelName(m.Info().Name),
		web.WithSecureCookie(cfg.SecureCookie),
		web.WithAllowedOrigins(cfg.AllowedOrigins...),
	)
	if err != nil {
		_ = rn.Close()
		_ = sessions.Close()
		return nil, err
	}
	return &app{handler: srv.Handler(), model: m.Info().Name, agent: ag, runner: rn, sessions: sessions}, nil
}

// Close releases the run pool and stops session cleanup.
func (a *app) Close() error {
	return errors.Join(a.runner.Close(), a.sessions.Close())
}

// newModel creates the shared model client. It carries no API key: every
// request supplies the key of the session that asked. An empty model name
// selects the provider default.
func newModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderGroq:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openai.GroqBaseURL
		}
		return openai.New(orDefault(cfg.Model, openai.GroqDefaultModel),
			openai.WithBaseURL(baseURL),
			openai.WithChatResponseCallback(logUsage),
		), nil
	case config.ProviderOpenAI:
		opts := []openai.Option{openai.WithChatResponseCallback(logUsage)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(orDefault(cfg.Model, openai.DefaultModel), opts...), nil
	case config.ProviderAnthropic:
		var opts []anthropic.Option
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.New(cfg.Model, opts...), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func orDefault(name, def string) string {
	if name == "" {
		return def
	}
	return name
}

// logUsage reports token usage of every completed model call at debug level.
func logUsage(_ context.Context, req *oai.ChatCompletionNewParams, resp *oai.ChatCompletion) {
	if resp == nil {
		return
	}
	log.Debugf("model %s usage: prompt=%d completion=%d",
		req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
}

// newTools returns the lookup tool followed by the calculator, plus the
// reasoning tool when enabled.
func newTools(cfg *config.Config, m model.Model) []tool.CallableTool {
	var lookup tool.CallableTool
	switch cfg.Lookup {
	case config.LookupDuckDuckGo:
		lookup = duckduckgo.NewTool()
	default:
		lookup = wikipedia.NewTool()
	}
	tools := []tool.CallableTool{lookup, calculator.NewTool(m)}
	if cfg.ReasoningTool {
		tools = append(tools, reasoning.NewTool(m, model.GenerationConfig{}))
	}
	return tools
}

// startTelemetry starts the OTLP exporters that have an endpoint configured.
func startTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	var cleanups []func() error
	if cfg.TraceEndpoint != "" {
		clean, err := trace.Start(ctx,
			trace.WithEndpoint(cfg.TraceEndpoint),
			trace.WithProtocol(cfg.TelemetryProtocol),
		)
		if err != nil {
			return nil, fmt.Errorf("start tracing: %w", err)
		}
		cleanups = append(cleanups, clean)
	}
	if cfg.MetricEndpoint != "" {
		clean, err := metric.Start(ctx,
			metric.WithEndpoint(cfg.MetricEndpoint),
			metric.WithProtocol(cfg.TelemetryProtocol),
		)
		if err != nil {
			for _, c := range cleanups {
				_ = c()
			}
			return nil, fmt.Errorf("start metrics: %w", err)
		}
		cleanups = append(cleanups, clean)
	}
	return func() {
		for _, c := range cleanups {
			if err := c(); err != nil {
				log.Warnf("telemetry shutdown: %v", err)
			}
		}
	}, nil
}
