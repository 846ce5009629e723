//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package function_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/mathsgpt/tool"
	"trpc.group/trpc-go/mathsgpt/tool/function"
)

func TestFunctionTool_Run_Success(t *testing.T) {
	type inputArgs struct {
		A int `json:"A" jsonschema:"description=First integer operand"`
		B int `json:"B" jsonschema:"description=Second integer operand"`
	}
	type outputArgs struct {
		Result int `json:"result"`
	}
	fn := func(_ context.Context, args inputArgs) (outputArgs, error) {
		return outputArgs{Result: args.A + args.B}, nil
	}
	fTool := function.NewFunctionTool(fn,
		function.WithName("SumFunction"),
		function.WithDescription("Calculates the sum of two integers."))

	result, err := fTool.Call(context.Background(), toArguments(t, inputArgs{A: 2, B: 3}))
	require.NoError(t, err)
	assert.Equal(t, outputArgs{Result: 5}, result)

	decl := fTool.Declaration()
	assert.Equal(t, "SumFunction", decl.Name)
	assert.Equal(t, "Calculates the sum of two integers.", decl.Description)
	assert.Equal(t, "First integer operand", decl.InputSchema.Properties["A"].Description)
	assert.Equal(t, []string{"A", "B"}, decl.InputSchema.Required)
}

func TestFunctionTool_Run_Errors(t *testing.T) {
	boom := errors.New("boom")
	fTool := function.NewFunctionTool(func(_ context.Context, in tool.QueryInput) (string, error) {
		return "", boom
	}, function.WithName("fails"))

	_, err := fTool.Call(context.Background(), []byte(`{"query":"x"}`))
	assert.ErrorIs(t, err, boom)

	_, err = fTool.Call(context.Background(), []byte(`not json`))
	assert.Error(t, err)
}

func TestFunctionTool_PlainTextInput(t *testing.T) {
	fTool := function.NewFunctionTool(func(_ context.Context, in tool.QueryInput) (string, error) {
		return in.Query, nil
	}, function.WithName("echo"), function.WithPlainTextInput())

	cases := map[string]string{
		`{"query":"2+2"}`: "2+2",
		`"quoted"`:        "quoted",
		`what is 5*5`:     "what is 5*5",
		`42`:              "42",
	}
	for args, want := range cases {
		got, err := fTool.Call(context.Background(), []byte(args))
		require.NoError(t, err, args)
		assert.Equal(t, want, got, args)
	}
}

// Helper function to create Arguments from any struct.
func toArguments(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return json.RawMessage(b)
}
