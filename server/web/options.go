//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package web

import (
	"trpc.group/trpc-go/mathsgpt/session"
	"trpc.group/trpc-go/mathsgpt/session/inmemory"
)

const (
	defaultCookieName = "mathsgpt_session"
	// DefaultQuestion pre-fills the question box.
	DefaultQuestion = "I have 5 bananas and 7 grapes. I eat 2 bananas and give away 3 grapes. " +
		"Then I buy a dozen apples and 2 packs of blueberries. Each pack of blueberries contains 25 berries. " +
		"How many total pieces of fruit do I have at the end?"
)

// Option configures the Server.
type Option func(*options)

type options struct {
	sessionService  session.Service
	cookieName      string
	secureCookie    bool
	allowedOrigins  []string
	defaultQuestion string
	modelName       string
}

func newOptions(opts ...Option) *options {
	o := &options{
		cookieName:      defaultCookieName,
		allowedOrigins:  []string{"*"},
		defaultQuestion: DefaultQuestion,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sessionService == nil {
		o.sessionService = inmemory.NewSessionService()
	}
	return o
}

// WithSessionService sets the session service. It must be the one the runner
// uses, otherwise the page will not see the transcript the runner writes.
func WithSessionService(svc session.Service) Option {
	return func(o *options) {
		o.sessionService = svc
	}
}

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.cookieName = name
		}
	}
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(o *options) {
		o.secureCookie = secure
	}
}

// WithAllowedOrigins sets the CORS allowed origins. Defaults to "*".
func WithAllowedOrigins(origins ...string) Option {
	return func(o *options) {
		if len(origins) > 0 {
			o.allowedOrigins = origins
		}
	}
}

// WithDefaultQuestion overrides the text pre-filled in the question box.
func WithDefaultQuestion(q string) Option {
	return func(o *options) {
		o.defaultQuestion = q
	}
}

// WithModelName sets the model name shown in the page footer.
func WithModelName(name string) Option {
	return func(o *options) {
		o.modelName = name
	}
}
