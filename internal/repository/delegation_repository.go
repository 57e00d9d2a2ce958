package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDelegationNotFound is returned when no active delegation exists
// for a token id.
var ErrDelegationNotFound = errors.New("delegation not found")

// ActiveDelegation is the server-side registry entry for a live
// delegated token. Entries expire with the token itself.
type ActiveDelegation struct {
	TokenID        string    `json:"tokenId"`
	OriginalUserID string    `json:"originalUserId"`
	TargetUserID   string    `json:"targetUserId"`
	StartedAt      time.Time `json:"startedAt"`
}

// DelegationRepository tracks active delegations.
type DelegationRepository interface {
	Put(ctx context.Context, delegation *ActiveDelegation, ttl time.Duration) error
	Get(ctx context.Context, tokenID string) (*ActiveDelegation, error)
	Delete(ctx context.Context, tokenID string) error
}

type delegationRepository struct {
	client *redis.Client
}

// NewDelegationRepository returns a Redis-backed implementation.
func NewDelegationRepository(client *redis.Client) DelegationRepository {
	return &delegationRepository{client: client}
}

func delegationKey(tokenID string) string {
	return "delegation:" + tokenID
}

func (r *delegationRepository) Put(ctx context.Context, delegation *ActiveDelegation, ttl time.Duration) error {
	raw, err := json.Marshal(delegation)
	if err != nil {
		return fmt.Errorf("encode delegation: %w", err)
	}
	return r.client.Set(ctx, delegationKey(delegation.TokenID), raw, ttl).Err()
}

func (r *delegationRepository) Get(ctx context.Context, tokenID string) (*ActiveDelegation, error) {
	raw, err := r.client.Get(ctx, delegationKey(tokenID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDelegationNotFound
	}
	if err != nil {
		return nil, err
	}
	var delegation ActiveDelegation
	if err := json.Unmarshal(raw, &delegation); err != nil {
		return nil, fmt.Errorf("decode delegation: %w", err)
	}
	return &delegation, nil
}

func (r *delegationRepository) Delete(ctx context.Context, tokenID string) error {
	return r.client.Del(ctx, delegationKey(tokenID)).Err()
}
