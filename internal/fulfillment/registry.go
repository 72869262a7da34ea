package fulfillment

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry maps each user to their single in-flight session. It is process
// state only: a restart drops every session, and nothing was granted for
// those yet.
type Registry struct {
	// ctx bounds gateway and store calls of every session started here.
	ctx context.Context

	mu       sync.Mutex
	sessions map[int64]*Session
	wg       sync.WaitGroup
}

// NewRegistry returns an empty registry whose sessions run under ctx.
func NewRegistry(ctx context.Context) *Registry {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Registry{ctx: ctx, sessions: make(map[int64]*Session)}
}

// Start registers s under its user and runs it in its own goroutine. A
// session already registered for that user is cancelled without waiting for
// its teardown.
func (r *Registry) Start(s *Session) {
	s.onTerminal = r.notifyTerminal

	r.mu.Lock()
	prev := r.sessions[s.UserID]
	r.sessions[s.UserID] = s
	r.wg.Add(1)
	r.mu.Unlock()

	if prev != nil && prev.Cancel() {
		log.Info().
			Str("session_id", prev.ID).
			Str("superseded_by", s.ID).
			Int64("user_id", s.UserID).
			Msg("payment session superseded")
	}
	sessionsActive.Inc()

	go func() {
		defer r.wg.Done()
		_ = s.Run(r.ctx)
	}()
}

// notifyTerminal drops the mapping only if it still points at s; a newer
// session for the same user stays registered.
func (r *Registry) notifyTerminal(s *Session) {
	r.mu.Lock()
	if cur, ok := r.sessions[s.UserID]; ok && cur == s {
		delete(r.sessions, s.UserID)
	}
	r.mu.Unlock()
	sessionsActive.Dec()
}

// Cancel cancels the user's active session, if any.
func (r *Registry) Cancel(userID int64) bool {
	r.mu.Lock()
	s := r.sessions[userID]
	r.mu.Unlock()
	if s == nil {
		return false
	}
	return s.Cancel()
}

// Active returns the user's registered session, or nil.
func (r *Registry) Active(userID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[userID]
}

// Len is the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown cancels every session and waits for their goroutines, or for ctx.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
