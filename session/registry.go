package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/gatekeeper/store"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

// Summary is the client-facing view of one session.
type Summary struct {
	ID             string    `json:"id"`
	Device         Device    `json:"device"`
	IP             string    `json:"ip"`
	UserAgent      string    `json:"user_agent"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Registry records one entry per login on top of a store.Sessions port.
type Registry struct {
	sessions store.Sessions
	now      func() time.Time
}

// NewRegistry returns a Registry. A nil now defaults to time.Now.
func NewRegistry(sessions store.Sessions, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{sessions: sessions, now: now}
}

// Open creates a session for accountID and returns its id.
func (r *Registry) Open(ctx context.Context, accountID, ip, userAgent string) (string, error) {
	now := r.now()
	sess := &store.Session{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		Device:         string(ClassifyDevice(userAgent)),
		IP:             ip,
		UserAgent:      userAgent,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := r.sessions.CreateSession(ctx, sess); err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Get returns the stored session or ErrNotFound.
func (r *Registry) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	sess, err := r.sessions.SessionByID(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return sess, err
}

// List returns the sessions of accountID, most recent activity first.
func (r *Registry) List(ctx context.Context, accountID string) ([]Summary, error) {
	rows, err := r.sessions.SessionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(rows))
	for _, s := range rows {
		out = append(out, Summary{
			ID:             s.ID,
			Device:         Device(s.Device),
			IP:             s.IP,
			UserAgent:      s.UserAgent,
			CreatedAt:      s.CreatedAt,
			LastActivityAt: s.LastActivityAt,
		})
	}
	return out, nil
}

// Touch records activity on sessionID.
func (r *Registry) Touch(ctx context.Context, sessionID string) error {
	err := r.sessions.TouchSession(ctx, sessionID, r.now())
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// RevokeOne deletes sessionID.
func (r *Registry) RevokeOne(ctx context.Context, sessionID string) error {
	err := r.sessions.DeleteSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// RevokeAllExcept deletes every session of accountID other than keepID. An empty
// keepID deletes them all.
func (r *Registry) RevokeAllExcept(ctx context.Context, accountID, keepID string) (int64, error) {
	return r.sessions.DeleteAccountSessions(ctx, accountID, keepID)
}
