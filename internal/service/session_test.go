package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nookapp/nook-server/internal/domain"
	"github.com/nookapp/nook-server/internal/session"
	"github.com/nookapp/nook-server/internal/store"
)

func seedUser(t *testing.T, st *memStore, userID, email string, verified bool) {
	t.Helper()

	user := &domain.User{
		ID:            userID,
		Email:         email,
		EmailVerified: verified,
	}
	user.InitTimestamps()
	require.NoError(t, st.CreateUser(context.Background(), user))
}

func TestIdentityConn_SubscribePushesCurrent(t *testing.T) {
	st := newMemStore()
	seedUser(t, st, "user-1", "reader@example.com", true)

	conn := NewIdentityConn(st, "user-1", testLogger())

	var got *domain.Identity
	cancel := conn.Subscribe(func(id *domain.Identity) { got = id })
	defer cancel()

	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.ID)
	assert.True(t, got.EmailVerified)
}

func TestIdentityConn_AnonymousPushesNil(t *testing.T) {
	st := newMemStore()
	conn := NewIdentityConn(st, "", testLogger())

	called := false
	var got *domain.Identity
	cancel := conn.Subscribe(func(id *domain.Identity) {
		called = true
		got = id
	})
	defer cancel()

	assert.True(t, called)
	assert.Nil(t, got)

	verified, err := conn.RefreshAndCheckVerified(context.Background())
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestIdentityConn_RefreshPushesVerificationChange(t *testing.T) {
	st := newMemStore()
	seedUser(t, st, "user-1", "reader@example.com", false)

	conn := NewIdentityConn(st, "user-1", testLogger())

	var pushes []*domain.Identity
	cancel := conn.Subscribe(func(id *domain.Identity) { pushes = append(pushes, id) })
	defer cancel()

	// Unchanged refresh pushes nothing
	verified, err := conn.RefreshAndCheckVerified(context.Background())
	require.NoError(t, err)
	assert.False(t, verified)
	assert.Len(t, pushes, 1)

	// Verification flips elsewhere; refresh notices and pushes
	st.mu.Lock()
	st.users["user-1"].MarkVerified()
	st.mu.Unlock()

	verified, err = conn.RefreshAndCheckVerified(context.Background())
	require.NoError(t, err)
	assert.True(t, verified)
	require.Len(t, pushes, 2)
	assert.True(t, pushes[1].EmailVerified)
}

func TestProfileFeed_SnapshotThenWrites(t *testing.T) {
	st := newMemStore()
	hub := store.NewProfileHub()
	st.emitter = hub

	profile := domain.NewProfile("user-1", "reader@example.com", "Reader")
	require.NoError(t, st.CreateProfile(context.Background(), profile))

	feed := NewProfileFeed(st, hub, testLogger())

	var pushes []*domain.Profile
	cancel := feed.Subscribe("user-1", func(p *domain.Profile) { pushes = append(pushes, p) })
	defer cancel()

	// Snapshot delivered synchronously
	require.Len(t, pushes, 1)
	assert.Equal(t, "Reader", pushes[0].DisplayName)

	// Subsequent writes flow through the hub
	profile.DisplayName = "New Name"
	require.NoError(t, st.UpdateProfile(context.Background(), profile))
	require.Len(t, pushes, 2)
	assert.Equal(t, "New Name", pushes[1].DisplayName)
}

func TestProfileFeed_NotProvisionedPushesNil(t *testing.T) {
	st := newMemStore()
	hub := store.NewProfileHub()
	st.emitter = hub

	feed := NewProfileFeed(st, hub, testLogger())

	var pushes []*domain.Profile
	cancel := feed.Subscribe("user-1", func(p *domain.Profile) { pushes = append(pushes, p) })
	defer cancel()

	require.Len(t, pushes, 1)
	assert.Nil(t, pushes[0])

	// Provisioning lands later and is delivered
	profile := domain.NewProfile("user-1", "reader@example.com", "Reader")
	require.NoError(t, st.CreateProfile(context.Background(), profile))
	require.Len(t, pushes, 2)
	assert.NotNil(t, pushes[1])
}

func TestSessionService_Evaluate(t *testing.T) {
	st := newMemStore()
	svc := NewSessionService(st, testLogger())

	t.Run("anonymous on protected route redirects to login", func(t *testing.T) {
		view, err := svc.Evaluate(context.Background(), "", "/home")
		require.NoError(t, err)
		assert.Equal(t, session.StateUnauthenticated, view.State)
		assert.Equal(t, session.ActionRedirect, view.Decision.Action)
		assert.Equal(t, session.TargetLogin, view.RedirectTo)
	})

	t.Run("unverified user is gated", func(t *testing.T) {
		seedUser(t, st, "user-unverified", "u@example.com", false)

		view, err := svc.Evaluate(context.Background(), "user-unverified", "/home")
		require.NoError(t, err)
		assert.Equal(t, session.StatePendingVerification, view.State)
		assert.Equal(t, session.ActionRedirect, view.Decision.Action)
	})

	t.Run("verified without profile needs provisioning", func(t *testing.T) {
		seedUser(t, st, "user-bare", "b@example.com", true)

		view, err := svc.Evaluate(context.Background(), "user-bare", "/loading")
		require.NoError(t, err)
		assert.Equal(t, session.StatePendingProfileCreation, view.State)
		assert.Equal(t, session.ActionProvision, view.Decision.Action)
	})

	t.Run("ready user renders protected routes", func(t *testing.T) {
		seedUser(t, st, "user-ready", "r@example.com", true)
		require.NoError(t, st.CreateProfile(context.Background(), domain.NewProfile("user-ready", "r@example.com", "R")))

		view, err := svc.Evaluate(context.Background(), "user-ready", "/home")
		require.NoError(t, err)
		assert.Equal(t, session.StateReady, view.State)
		assert.Equal(t, session.ActionRender, view.Decision.Action)
		assert.Empty(t, view.RedirectTo)
	})

	t.Run("stale token for deleted user is anonymous", func(t *testing.T) {
		view, err := svc.Evaluate(context.Background(), "user-gone", "/home")
		require.NoError(t, err)
		assert.Equal(t, session.StateUnauthenticated, view.State)
	})
}

func TestSessionService_RunJanitor(t *testing.T) {
	st := newMemStore()
	svc := NewSessionService(st, testLogger())

	require.NoError(t, st.CreateSession(context.Background(), &domain.Session{
		ID:        "session-dead",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, st.CreateSession(context.Background(), &domain.Session{
		ID:        "session-live",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunJanitor(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		st.mu.Lock()
		defer st.mu.Unlock()
		_, dead := st.sessions["session-dead"]
		return !dead
	}, time.Second, 10*time.Millisecond)

	st.mu.Lock()
	_, live := st.sessions["session-live"]
	st.mu.Unlock()
	assert.True(t, live)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancel")
	}
}
