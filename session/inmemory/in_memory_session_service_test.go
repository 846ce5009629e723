//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/mathsgpt/session"
)

func TestCreateSessionSeedsGreeting(t *testing.T) {
	s := NewSessionService()
	defer s.Close()

	sess, err := s.CreateSession(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, session.RoleAssistant, sess.Messages[0].Role)
	assert.Equal(t, session.Greeting, sess.Messages[0].Content)
	assert.Empty(t, sess.APIKey())

	other, err := s.CreateSession(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, other.ID)
}

func TestWithGreeting(t *testing.T) {
	s := NewSessionService(WithGreeting(""))
	defer s.Close()
	sess, err := s.CreateSession(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sess.Messages)
}

func TestAppendMessageKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService()
	defer s.Close()
	sess, err := s.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, s.AppendMessage(ctx, sess.ID, session.NewMessage(session.RoleUser, "2+2?")))
	require.NoError(t, s.AppendMessage(ctx, sess.ID, session.NewMessage(session.RoleAssistant, "4")))

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, session.RoleUser, got.Messages[1].Role)
	assert.Equal(t, "2+2?", got.Messages[1].Content)
	assert.Equal(t, session.RoleAssistant, got.Messages[2].Role)
	assert.Equal(t, "4", got.Messages[2].Content)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestAppendMessageErrors(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService()
	defer s.Close()

	err := s.AppendMessage(ctx, "", session.NewMessage(session.RoleUser, "x"))
	assert.ErrorIs(t, err, session.ErrSessionIDRequired)

	err = s.AppendMessage(ctx, "missing", session.NewMessage(session.RoleUser, "x"))
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	sess, err := s.CreateSession(ctx)
	require.NoError(t, err)
	err = s.AppendMessage(ctx, sess.ID, session.Message{Role: "system", Content: "x"})
	assert.ErrorIs(t, err, session.ErrInvalidRole)
}

func TestGetSessionReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService()
	defer s.Close()
	sess, err := s.CreateSession(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SetAPIKey(ctx, sess.ID, "gsk_1"))

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	got.Messages[0].Content = "changed"
	got.State[session.StateKeyAPIKey][0] = 'X'

	again, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Greeting, again.Messages[0].Content)
	assert.Equal(t, "gsk_1", again.APIKey())
}

func TestSetAPIKey(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService()
	defer s.Close()
	sess, err := s.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, s.SetAPIKey(ctx, sess.ID, "gsk_1"))
	got, _ := s.GetSession(ctx, sess.ID)
	assert.Equal(t, "gsk_1", got.APIKey())

	require.NoError(t, s.SetAPIKey(ctx, sess.ID, ""))
	got, _ = s.GetSession(ctx, sess.ID)
	assert.Empty(t, got.APIKey())

	assert.ErrorIs(t, s.SetAPIKey(ctx, "missing", "k"), session.ErrSessionNotFound)
}

func TestResetSessionKeepsKey(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService()
	defer s.Close()
	sess, err := s.CreateSession(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SetAPIKey(ctx, sess.ID, "gsk_1"))
	require.NoError(t, s.AppendMessage(ctx, sess.ID, session.NewMessage(session.RoleUser, "q")))

	require.NoError(t, s.ResetSession(ctx, sess.ID))
	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, session.Greeting, got.Messages[0].Content)
	assert.Equal(t, "gsk_1", got.APIKey())
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService()
	defer s.Close()
	sess, err := s.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, sess.ID))
	_, err = s.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.ErrorIs(t, s.DeleteSession(ctx, ""), session.ErrSessionIDRequired)
	_, err = s.GetSession(ctx, "")
	assert.ErrorIs(t, err, session.ErrSessionIDRequired)
}

func TestSessionTTL(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ServiceOpt
		wait    time.Duration
		expired bool
	}{
		{name: "never_expires_when_ttl_zero", opts: []ServiceOpt{WithSessionTTL(0)}, wait: 150 * time.Millisecond},
		{name: "expires_after_ttl", opts: []ServiceOpt{WithSessionTTL(50 * time.Millisecond)}, wait: 150 * time.Millisecond, expired: true},
		{name: "alive_within_ttl", opts: []ServiceOpt{WithSessionTTL(time.Minute)}, wait: 10 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := NewSessionService(tt.opts...)
			defer s.Close()
			sess, err := s.CreateSession(ctx)
			require.NoError(t, err)

			time.Sleep(tt.wait)
			_, err = s.GetSession(ctx, sess.ID)
			if tt.expired {
				assert.ErrorIs(t, err, session.ErrSessionNotFound)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestActivityRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService(WithSessionTTL(120 * time.Millisecond))
	defer s.Close()
	sess, err := s.CreateSession(ctx)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		time.Sleep(60 * time.Millisecond)
		require.NoError(t, s.AppendMessage(ctx, sess.ID, session.NewMessage(session.RoleUser, "still here")))
	}
	_, err = s.GetSession(ctx, sess.ID)
	assert.NoError(t, err)
}

func TestCleanupRoutineEvicts(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService(WithSessionTTL(20*time.Millisecond), WithCleanupInterval(10*time.Millisecond))
	defer s.Close()
	_, err := s.CreateSession(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.sessions) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewSessionService()
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.NoError(t, NewSessionService(WithSessionTTL(0)).Close())
}

func TestConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService()
	defer s.Close()
	sess, err := s.CreateSession(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.AppendMessage(ctx, sess.ID, session.NewMessage(session.RoleUser, fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()
	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 51)
}
