// Package store persists the per-role credential envelopes shared by every
// privileged screen on the device.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spec-kit/faceauth-service/internal/domain"
)

var ErrNotFound = errors.New("envelope not found")

// Key names are shared with older app builds and must not change.
const (
	KeyAdminEnvelope   = "adminAuth"
	KeyManagerEnvelope = "managerAuth"
	KeyLegacyAdmin     = "authToken"
	KeyLegacyManager   = "managerToken"
	KeyAdminName       = "adminName"
	KeyManagerName     = "managerName"
	KeyUserName        = "userName"
	KeyUserPhoto       = "userPhoto"
)

// AllKeys lists every key removed by ClearAll.
var AllKeys = []string{
	KeyAdminEnvelope,
	KeyManagerEnvelope,
	KeyLegacyAdmin,
	KeyLegacyManager,
	KeyAdminName,
	KeyManagerName,
	KeyUserName,
	KeyUserPhoto,
}

// KV is the raw persistence backend. Set replaces a whole value and Delete
// removes all given keys in one operation.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// CredentialStore is what the resolver and session service depend on.
type CredentialStore interface {
	Get(ctx context.Context, role domain.Role) (*domain.Envelope, error)
	Put(ctx context.Context, role domain.Role, env domain.Envelope) error
	LegacyToken(ctx context.Context, role domain.Role) (string, error)
	SetDisplayName(ctx context.Context, role domain.Role, name string) error
	ClearAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Store encodes envelopes as JSON on top of a KV backend.
type Store struct {
	kv KV
}

// New wraps a KV backend.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// NewMemory returns a store backed by process memory.
func NewMemory() *Store {
	return New(NewMemoryKV())
}

func envelopeKey(role domain.Role) (string, error) {
	switch role {
	case domain.RoleAdmin:
		return KeyAdminEnvelope, nil
	case domain.RoleManager:
		return KeyManagerEnvelope, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

func legacyKey(role domain.Role) (string, error) {
	switch role {
	case domain.RoleAdmin:
		return KeyLegacyAdmin, nil
	case domain.RoleManager:
		return KeyLegacyManager, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

// Get returns the envelope for role or ErrNotFound.
func (s *Store) Get(ctx context.Context, role domain.Role) (*domain.Envelope, error) {
	key, err := envelopeKey(role)
	if err != nil {
		return nil, err
	}
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return nil, ErrNotFound
	}
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &env, nil
}

// Put replaces the whole envelope for role.
func (s *Store) Put(ctx context.Context, role domain.Role, env domain.Envelope) error {
	key, err := envelopeKey(role)
	if err != nil {
		return err
	}
	if env.Token == "" {
		return fmt.Errorf("envelope for %s has no token", role)
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// LegacyToken returns the pre-envelope scalar token for role, or "".
func (s *Store) LegacyToken(ctx context.Context, role domain.Role) (string, error) {
	key, err := legacyKey(role)
	if err != nil {
		return "", err
	}
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return string(raw), nil
}

// SetLegacyToken writes a pre-envelope scalar token. Only older builds and
// tests write these keys.
func (s *Store) SetLegacyToken(ctx context.Context, role domain.Role, token string) error {
	key, err := legacyKey(role)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, []byte(token))
}

// SetDisplayName caches the profile name shown in screen headers.
func (s *Store) SetDisplayName(ctx context.Context, role domain.Role, name string) error {
	key := KeyAdminName
	if role == domain.RoleManager {
		key = KeyManagerName
	}
	return s.kv.Set(ctx, key, []byte(name))
}

// ClearAll removes every envelope, legacy key and display scalar in one call.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.kv.Delete(ctx, AllKeys...); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}
