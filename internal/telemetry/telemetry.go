//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the names and helpers shared by the tracing and
// metrics packages and the components that emit spans.
package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// telemetry service constants.
const (
	ServiceName      = "mathsgpt"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go"
	InstrumentName   = "trpc.group/trpc-go/mathsgpt"

	SpanNameInvocation = "invocation"
	SpanNameReActStep  = "react.step"
	SpanNamePrefixTool = "tool"
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporter.
	ProtocolHTTP string = "http"
)

// metric instrument names.
const (
	MetricRuns        = "mathsgpt.runs"
	MetricToolCalls   = "mathsgpt.tool_calls"
	MetricRunDuration = "mathsgpt.run.duration"
)

// telemetry attributes constants.
var (
	KeyInvocationID = "mathsgpt.invocation_id"
	KeySessionID    = "mathsgpt.session_id"
	KeyModel        = "mathsgpt.model"
	KeyStep         = "mathsgpt.step"
	KeyTool         = "tool"
	KeyToolInput    = "mathsgpt.tool_input"
	KeyToolOutput   = "mathsgpt.tool_output"
	KeyOutcome      = "outcome"
)

// maxAttributeLen bounds free text recorded on spans.
const maxAttributeLen = 1024

// NewToolSpanName creates a span name for running the named tool.
func NewToolSpanName(toolName string) string {
	return fmt.Sprintf("%s %s", SpanNamePrefixTool, toolName)
}

// TraceToolCall records a tool call and its observation on span.
func TraceToolCall(span trace.Span, toolName, input, output string) {
	span.SetAttributes(
		attribute.String(KeyTool, toolName),
		attribute.String(KeyToolInput, clip(input)),
		attribute.String(KeyToolOutput, clip(output)),
	)
}

// TraceStep records one reasoning step on span.
func TraceStep(span trace.Span, invocationID, modelName string, step int) {
	span.SetAttributes(
		attribute.String(KeyInvocationID, invocationID),
		attribute.String(KeyModel, modelName),
		attribute.Int(KeyStep, step),
	)
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxAttributeLen {
		return s
	}
	return string(r[:maxAttributeLen]) + "..."
}

// NewGRPCConn creates a new gRPC connection to the OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	// Note the use of insecure transport here. TLS is recommended in production.
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
