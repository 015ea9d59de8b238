package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SetupStateStore = (*SetupStateStore)(nil)

const defaultPrefix = "bankster:setup:"

// SetupStateStore is the Redis implementation of the SetupStateStore port.
// Expiry is delegated to the key TTL.
type SetupStateStore struct {
	client *redis.Client
	prefix string
}

// NewSetupStateStore creates a store. An empty prefix uses
// "bankster:setup:".
func NewSetupStateStore(client *redis.Client, prefix string) *SetupStateStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SetupStateStore{client: client, prefix: prefix}
}

// setupStateJSON is the stored envelope. Byte slices are base64 encoded by
// encoding/json.
type setupStateJSON struct {
	Account        string    `json:"account"`
	TanMode        string    `json:"tan_mode"`
	TanMedium      string    `json:"tan_medium,omitempty"`
	Pending        []byte    `json:"pending,omitempty"`
	PersistedState []byte    `json:"persisted_state,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Put stores state under key for ttl.
func (s *SetupStateStore) Put(ctx context.Context, key string, state model.SetupState, ttl time.Duration) error {
	payload, err := json.Marshal(setupStateJSON(state))
	if err != nil {
		return fmt.Errorf("marshal setup state: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store setup state: %w", err)
	}
	return nil
}

// Get returns the state under key, or (nil, nil) once it expired.
func (s *SetupStateStore) Get(ctx context.Context, key string) (*model.SetupState, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load setup state: %w", err)
	}

	var env setupStateJSON
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal setup state: %w", err)
	}
	state := model.SetupState(env)
	return &state, nil
}

// Delete removes the state under key. Deleting a missing key is not an error.
func (s *SetupStateStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete setup state: %w", err)
	}
	return nil
}
