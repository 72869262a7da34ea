package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_OneSessionPerUser_SupersededNeverGrants(t *testing.T) {
	reg := NewRegistry(context.Background())
	g := newGranter()

	first := &scripted{gate: make(chan bool), entered: make(chan struct{}, 1)}
	s1, err := NewSession(widgetOrder(7), method(first, 5, 0), Options{Granter: g})
	require.NoError(t, err)
	reg.Start(s1)
	<-first.entered // s1 has a check in flight

	second := &scripted{gate: make(chan bool), entered: make(chan struct{}, 1)}
	s2, err := NewSession(widgetOrder(7), method(second, 5, 0), Options{Granter: g})
	require.NoError(t, err)
	reg.Start(s2)

	assert.Equal(t, StateCancelled, s1.State(), "starting a new session cancels the old one")
	assert.Same(t, s2, reg.Active(7))
	assert.Equal(t, 1, reg.Len())

	// The superseded session's pending check now reports paid.
	first.gate <- true
	<-s1.Done()
	assert.ErrorIs(t, s1.Err(), ErrCancelled)
	assert.False(t, g.Owns(7, 1), "superseded session must not grant")
	assert.Same(t, s2, reg.Active(7), "old session cleanup leaves the new mapping alone")

	<-second.entered
	second.gate <- true
	<-s2.Done()
	require.NoError(t, s2.Err())
	assert.True(t, g.Owns(7, 1))

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, reg.Active(7))
}

func TestRegistry_CancelAndUnknownUser(t *testing.T) {
	reg := NewRegistry(context.Background())
	assert.False(t, reg.Cancel(99))

	b := &scripted{}
	s, err := NewSession(widgetOrder(7), method(b, 100, time.Hour), Options{Granter: newGranter()})
	require.NoError(t, err)
	reg.Start(s)

	require.Eventually(t, func() bool { return s.Attempts() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, reg.Cancel(7))
	<-s.Done()
	assert.ErrorIs(t, s.Err(), ErrCancelled)
	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRegistry_SessionsForDifferentUsersRunIndependently(t *testing.T) {
	reg := NewRegistry(context.Background())
	g := newGranter()

	var sessions []*Session
	for uid := int64(1); uid <= 3; uid++ {
		s, err := NewSession(widgetOrder(uid), method(&scripted{results: []bool{false, true}}, 2, 0), Options{Granter: g})
		require.NoError(t, err)
		reg.Start(s)
		sessions = append(sessions, s)
	}
	for _, s := range sessions {
		<-s.Done()
		assert.Equal(t, StateConfirmed, s.State())
	}
	for uid := int64(1); uid <= 3; uid++ {
		assert.True(t, g.Owns(uid, 1))
	}
}

func TestRegistry_ShutdownCancelsAndWaits(t *testing.T) {
	reg := NewRegistry(context.Background())
	g := newGranter()

	var sessions []*Session
	for uid := int64(1); uid <= 3; uid++ {
		s, err := NewSession(widgetOrder(uid), method(&scripted{}, 100, time.Hour), Options{Granter: g})
		require.NoError(t, err)
		reg.Start(s)
		sessions = append(sessions, s)
	}
	for _, s := range sessions {
		s := s
		require.Eventually(t, func() bool { return s.Attempts() == 1 }, time.Second, 5*time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))

	for _, s := range sessions {
		assert.Equal(t, StateCancelled, s.State())
	}
	assert.Equal(t, 0, reg.Len())
}
