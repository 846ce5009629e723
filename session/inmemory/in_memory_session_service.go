//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package inmemory provides in-memory session service implementation.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/mathsgpt/log"
	"trpc.group/trpc-go/mathsgpt/session"
)

const (
	defaultSessionTTL      = time.Hour
	defaultCleanupInterval = 5 * time.Minute
)

var _ session.Service = (*SessionService)(nil)

// serviceOpts is the options for session service.
type serviceOpts struct {
	// sessionTTL is how long an idle session is kept. 0 keeps sessions forever.
	sessionTTL time.Duration
	// cleanupInterval is the interval for automatic cleanup of expired sessions.
	cleanupInterval time.Duration
	// greeting seeds every new transcript.
	greeting string
}

// ServiceOpt is the option for the in-memory session service.
type ServiceOpt func(*serviceOpts)

// WithSessionTTL sets how long an idle session is kept.
// If not set, sessions expire after one hour; 0 keeps them forever.
func WithSessionTTL(ttl time.Duration) ServiceOpt {
	return func(opts *serviceOpts) {
		opts.sessionTTL = ttl
	}
}

// WithCleanupInterval sets the interval for automatic cleanup of expired sessions.
// If not set, it is the smaller of the TTL and five minutes.
func WithCleanupInterval(interval time.Duration) ServiceOpt {
	return func(opts *serviceOpts) {
		opts.cleanupInterval = interval
	}
}

// WithGreeting overrides the first assistant message of new transcripts.
// An empty greeting starts transcripts empty.
func WithGreeting(greeting string) ServiceOpt {
	return func(opts *serviceOpts) {
		opts.greeting = greeting
	}
}

// sessionWithTTL pairs a session with its expiry; a zero expiredAt never expires.
type sessionWithTTL struct {
	session   *session.Session
	expiredAt time.Time
}

// SessionService provides an in-memory implementation of session.Service.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*sessionWithTTL
	opts     serviceOpts

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	closeOnce     sync.Once
}

// NewSessionService creates a new in-memory session service.
func NewSessionService(options ...ServiceOpt) *SessionService {
	opts := serviceOpts{
		sessionTTL: defaultSessionTTL,
		greeting:   session.Greeting,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.cleanupInterval <= 0 && opts.sessionTTL > 0 {
		opts.cleanupInterval = min(opts.sessionTTL, defaultCleanupInterval)
	}
	s := &SessionService{
		sessions:    make(map[string]*sessionWithTTL),
		opts:        opts,
		cleanupDone: make(chan struct{}),
	}
	if opts.sessionTTL > 0 {
		s.startCleanupRoutine()
	}
	return s
}

// CreateSession creates a new session seeded with the greeting.
func (s *SessionService) CreateSession(ctx context.Context) (*session.Session, error) {
	now := time.Now()
	sess := &session.Session{
		ID:        uuid.New().String(),
		State:     make(session.StateMap),
		CreatedAt: now,
		UpdatedAt: now,
	}
	sess.Messages = s.seed(now)

	s.mu.Lock()
	s.sessions[sess.ID] = &sessionWithTTL{session: sess, expiredAt: s.expiry(now)}
	s.mu.Unlock()
	log.Debugf("session %s created", sess.ID)
	return copySession(sess), nil
}

// GetSession returns a copy of the session.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, session.ErrSessionIDRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	swt, ok := s.sessions[sessionID]
	if !ok || isExpired(swt.expiredAt) {
		return nil, fmt.Errorf("%w: %s", session.ErrSessionNotFound, sessionID)
	}
	return copySession(swt.session), nil
}

// AppendMessage appends a message to the transcript and refreshes the TTL.
func (s *SessionService) AppendMessage(ctx context.Context, sessionID string, msg session.Message) error {
	if !msg.Role.IsValid() {
		return fmt.Errorf("%w: %q", session.ErrInvalidRole, msg.Role)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return s.update(sessionID, func(sess *session.Session) {
		sess.Messages = append(sess.Messages, msg)
	})
}

// SetAPIKey stores the user's API key. An empty key clears it.
func (s *SessionService) SetAPIKey(ctx context.Context, sessionID, apiKey string) error {
	return s.update(sessionID, func(sess *session.Session) {
		if apiKey == "" {
			delete(sess.State, session.StateKeyAPIKey)
			return
		}
		sess.State[session.StateKeyAPIKey] = []byte(apiKey)
	})
}

// ResetSession clears the transcript back to the greeting.
func (s *SessionService) ResetSession(ctx context.Context, sessionID string) error {
	return s.update(sessionID, func(sess *session.Session) {
		sess.Messages = s.seed(time.Now())
	})
}

// DeleteSession deletes a session.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return session.ErrSessionIDRequired
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Close stops the cleanup routine.
func (s *SessionService) Close() error {
	s.closeOnce.Do(func() {
		if s.cleanupTicker != nil {
			s.cleanupTicker.Stop()
		}
		close(s.cleanupDone)
	})
	return nil
}

func (s *SessionService) update(sessionID string, fn func(sess *session.Session)) error {
	if sessionID == "" {
		return session.ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	swt, ok := s.sessions[sessionID]
	if !ok || isExpired(swt.expiredAt) {
		return fmt.Errorf("%w: %s", session.ErrSessionNotFound, sessionID)
	}
	now := time.Now()
	if swt.session.State == nil {
		swt.session.State = make(session.StateMap)
	}
	fn(swt.session)
	swt.session.UpdatedAt = now
	swt.expiredAt = s.expiry(now)
	return nil
}

func (s *SessionService) seed(now time.Time) []session.Message {
	if s.opts.greeting == "" {
		return nil
	}
	return []session.Message{{Role: session.RoleAssistant, Content: s.opts.greeting, CreatedAt: now}}
}

func (s *SessionService) expiry(now time.Time) time.Time {
	if s.opts.sessionTTL <= 0 {
		return time.Time{}
	}
	return now.Add(s.opts.sessionTTL)
}

func (s *SessionService) startCleanupRoutine() {
	s.cleanupTicker = time.NewTicker(s.opts.cleanupInterval)
	ticker := s.cleanupTicker
	go func() {
		for {
			select {
			case <-ticker.C:
				s.cleanupExpired()
			case <-s.cleanupDone:
				return
			}
		}
	}()
}

// cleanupExpired drops every expired session.
func (s *SessionService) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, swt := range s.sessions {
		if isExpired(swt.expiredAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("session cleanup removed %d expired sessions", removed)
	}
}

func isExpired(expiredAt time.Time) bool {
	return !expiredAt.IsZero() && time.Now().After(expiredAt)
}

func copySession(sess *session.Session) *session.Session {
	cp := &session.Session{
		ID:        sess.ID,
		Messages:  make([]session.Message, len(sess.Messages)),
		State:     make(session.StateMap, len(sess.State)),
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
	copy(cp.Messages, sess.Messages)
	for k, v := range sess.State {
		b := make([]byte, len(v))
		copy(b, v)
		cp.State[k] = b
	}
	return cp
}
