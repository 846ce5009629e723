//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package model

import "context"

type apiKeyCtxKey struct{}

// ContextWithAPIKey returns a context carrying the caller's API key. Model
// implementations use it when a Request does not set APIKey, so that tools
// calling the model on behalf of a user reuse that user's key.
func ContextWithAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, apiKeyCtxKey{}, key)
}

// APIKeyFromContext returns the key stored by ContextWithAPIKey, if any.
func APIKeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	key, _ := ctx.Value(apiKeyCtxKey{}).(string)
	return key
}

// ResolveAPIKey picks the request key first, then the context key.
func ResolveAPIKey(ctx context.Context, request *Request) string {
	if request != nil && request.APIKey != "" {
		return request.APIKey
	}
	return APIKeyFromContext(ctx)
}
