package model

import (
	"time"

	"content-subscription-platform/internal/domain"

	"github.com/google/uuid"
)

// User is a platform account. The subscription state is embedded so the
// entitlement has a single source of truth in memory.
type User struct {
	ID           string
	Username     string
	Email        string
	RegisteredAt time.Time
	LastActiveAt time.Time
	IsAdmin      bool
	Subscription SubscriptionState
}

func NewUser(id, username, email string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if username == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		RegisteredAt: now,
		LastActiveAt: now,
		Subscription: SubscriptionState{Tier: TierNone},
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
func (u *User) Touch()       { u.LastActiveAt = time.Now() }
