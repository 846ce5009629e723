//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package main starts the MathsGPT web server: a chat page that answers
// math and reasoning questions with a ReAct agent backed by Groq.
//
// Usage:
//
//	go run ./cmd/mathsgpt
//	go run ./cmd/mathsgpt -config mathsgpt.yaml -addr :9090 -log-level debug
//
// The API key is entered on the page and kept only in that browser session.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trpc.group/trpc-go/mathsgpt/config"
	"trpc.group/trpc-go/mathsgpt/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	envFile := flag.String("env-file", ".env", "Path to a .env file with server settings")
	addr := flag.String("addr", "", "Listen address")
	modelName := flag.String("model", "", "Model name")
	provider := flag.String("provider", "", "Model provider: groq, openai or anthropic")
	baseURL := flag.String("base-url", "", "Model endpoint override")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	traceEndpoint := flag.String("trace-endpoint", "", "OTLP trace collector endpoint")
	metricEndpoint := flag.String("metric-endpoint", "", "OTLP metric collector endpoint")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ApplyEnv(*envFile); err != nil {
		log.Fatalf("load env: %v", err)
	}
	override(&cfg.Addr, *addr)
	override(&cfg.Model, *modelName)
	override(&cfg.Provider, *provider)
	override(&cfg.BaseURL, *baseURL)
	override(&cfg.LogLevel, *logLevel)
	override(&cfg.TraceEndpoint, *traceEndpoint)
	override(&cfg.MetricEndpoint, *metricEndpoint)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanup, err := startTelemetry(ctx, cfg)
	if err != nil {
		log.Fatalf("start telemetry: %v", err)
	}
	defer cleanup()

	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("build app: %v", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("MathsGPT listening on %s (provider=%s, model=%s)", cfg.Addr, cfg.Provider, app.model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}
