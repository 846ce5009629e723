//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// QueryInput is the argument shape shared by every text-in/text-out tool.
type QueryInput struct {
	Query string `json:"query" jsonschema:"description=Free text input for the tool"`
}

// CallText invokes t with a QueryInput built from input and renders the
// result as text. Strings pass through; fmt.Stringer values use String;
// anything else is JSON encoded.
func CallText(ctx context.Context, t CallableTool, input string) (string, error) {
	args, err := json.Marshal(QueryInput{Query: input})
	if err != nil {
		return "", err
	}
	out, err := t.Call(ctx, args)
	if err != nil {
		return "", err
	}
	return ToText(out), nil
}

// ToText renders a tool result for an observation.
func ToText(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case fmt.Stringer:
		return r.String()
	case []byte:
		return string(r)
	default:
		bts, err := json.Marshal(r)
		if err != nil {
			return fmt.Sprint(r)
		}
		return string(bts)
	}
}
