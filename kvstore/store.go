// Package kvstore provides a small byte-oriented key-value abstraction used to
// persist client state such as auth tokens across process restarts.
// Implementations must be safe for concurrent use.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store is a TTL-aware key-value store.
//
// Example usage:
//
//	store := kvstore.NewMemory()
//	defer store.Close()
//
//	err := store.Set(ctx, "routekit:auth:token", payload, time.Hour)
//	payload, err = store.Get(ctx, "routekit:auth:token")
type Store interface {
	// Get returns the stored value. Returns ErrNotFound if the key doesn't
	// exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of 0 stores without expiration.
	// Returns ErrInvalidTTL for a negative ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources. Further calls return ErrClosed.
	Close() error
}

var (
	// ErrNotFound is returned when a key doesn't exist or has expired.
	ErrNotFound = errors.New("kvstore: key not found")

	// ErrClosed is returned when using a closed store.
	ErrClosed = errors.New("kvstore: store closed")

	// ErrInvalidTTL is returned for negative TTL values.
	ErrInvalidTTL = errors.New("kvstore: invalid TTL")
)

// ConfigError reports an invalid store configuration.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kvstore configuration error: %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("kvstore configuration error: %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new configuration error.
func NewConfigError(field, message string, err error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Err: err}
}

// ConnectionError reports a failure to reach the backing server.
type ConnectionError struct {
	Op      string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("kvstore connection error: %s failed for %s: %v", e.Op, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NewConnectionError creates a new connection error.
func NewConnectionError(op, address string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Address: address, Err: err}
}

// OperationError reports a failed Get, Set or Delete.
type OperationError struct {
	Op  string
	Key string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("kvstore operation error: %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// NewOperationError creates a new operation error.
func NewOperationError(op, key string, err error) *OperationError {
	return &OperationError{Op: op, Key: key, Err: err}
}

// Operation names recorded in store metrics.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpDelete = "delete"
)
