// Package session persists the client-side session credential.
//
// A session is two string values held under fixed keys (console.TokenStorageKey and
// console.UserStorageKey): an opaque bearer token and the serialized profile of the user
// it belongs to. A front end may also keep the refresh token under
// console.RefreshTokenStorageKey; it plays no part in deciding authentication and the API
// client never writes it. The presence of the token is the only signal that the user is
// authenticated - no expiry is tracked here.
//
// Store implementations must be safe for concurrent use and must read and write whole
// values, so concurrent callers never observe a partially written value.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	console "github.com/velocity-platform/console"
)

// ErrNoSession is returned by LoadUser when no profile is stored.
var ErrNoSession = errors.New("no session")

// Store is a string-keyed persistent store (the equivalent of browser local storage).
type Store interface {
	// Get returns the stored value, or "" when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes the keys. Removing an absent key is not an error.
	Remove(ctx context.Context, keys ...string) error
}

// Token returns the stored bearer token, "" when the user is not signed in.
func Token(ctx context.Context, s Store) (string, error) {
	return s.Get(ctx, console.TokenStorageKey)
}

// SetToken replaces the stored bearer token.
func SetToken(ctx context.Context, s Store, token string) error {
	return s.Set(ctx, console.TokenStorageKey, token)
}

// SaveCredentials stores the token and the serialized user profile.
func SaveCredentials(ctx context.Context, s Store, token string, user any) error {
	if err := s.Set(ctx, console.TokenStorageKey, token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	if user == nil {
		return nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user profile: %w", err)
	}
	if err := s.Set(ctx, console.UserStorageKey, string(data)); err != nil {
		return fmt.Errorf("storing user profile: %w", err)
	}
	return nil
}

// LoadUser decodes the stored user profile into v.
func LoadUser(ctx context.Context, s Store, v any) error {
	raw, err := s.Get(ctx, console.UserStorageKey)
	if err != nil {
		return err
	}
	if raw == "" {
		return ErrNoSession
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decoding user profile: %w", err)
	}
	return nil
}

// RefreshToken returns the kept refresh token, "" when there is none.
func RefreshToken(ctx context.Context, s Store) (string, error) {
	return s.Get(ctx, console.RefreshTokenStorageKey)
}

// SaveRefreshToken keeps the refresh token. An empty token removes any kept one.
func SaveRefreshToken(ctx context.Context, s Store, token string) error {
	if token == "" {
		return s.Remove(ctx, console.RefreshTokenStorageKey)
	}
	return s.Set(ctx, console.RefreshTokenStorageKey, token)
}

// Clear removes the session keys, including a kept refresh token.
func Clear(ctx context.Context, s Store) error {
	return s.Remove(ctx, console.TokenStorageKey, console.UserStorageKey, console.RefreshTokenStorageKey)
}
