// Package storage names, stores, looks up and expires per-job artifacts.
//
// Keys have the shape {prefix}/{jobID}/{filename}. The prefix comes from the
// namespace (original uploads or converted outputs). The bytes live in a
// pluggable Backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"fileconv/logger"
	"fileconv/utils"
)

// ErrNotFound is returned by backends for keys that do not exist
var ErrNotFound = errors.New("object not found")

// ErrInvalidJobID is returned when a job identifier fails the grammar check
var ErrInvalidJobID = errors.New("invalid job id")

type Namespace int

const (
	Original Namespace = iota
	Converted
)

func (n Namespace) String() string {
	if n == Converted {
		return "converted"
	}
	return "original"
}

// MetaMimeType is the metadata key under which the detected content type of an upload is cached
const MetaMimeType = "mime-type"

// ObjectInfo describes a stored object as returned by a listing
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Backend is the raw object store. List must return keys in ascending
// lexicographic order and handle any pagination internally. Delete of an
// absent key must succeed. Head and Get return ErrNotFound for absent keys.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, meta map[string]string) error
	Head(ctx context.Context, key string) (map[string]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Swept records one object removed by SweepExpired
type Swept struct {
	Key string
	Age time.Duration
}

type Store struct {
	backend  Backend
	prefixes map[Namespace]string
	now      func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now when computing object ages
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPrefixes overrides the default "uploads" and "converted" key prefixes
func WithPrefixes(original, converted string) Option {
	return func(s *Store) {
		if original != "" {
			s.prefixes[Original] = strings.Trim(original, "/")
		}
		if converted != "" {
			s.prefixes[Converted] = strings.Trim(converted, "/")
		}
	}
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		prefixes: map[Namespace]string{
			Original:  "uploads",
			Converted: "converted",
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key builds the storage key for an object without touching the backend
func (s *Store) Key(ns Namespace, jobID, filename string) string {
	return path.Join(s.prefixes[ns], jobID, filename)
}

func (s *Store) jobPrefix(ns Namespace, jobID string) string {
	return s.prefixes[ns] + "/" + jobID + "/"
}

// Put writes data under {prefix(ns)}/{jobID}/{filename} and returns the key
func (s *Store) Put(ctx context.Context, ns Namespace, jobID, filename string, data []byte, meta map[string]string) (string, error) {
	if !utils.ValidJobID(jobID) {
		return "", ErrInvalidJobID
	}
	if filename == "" || strings.ContainsAny(filename, "/\\") || filename == "." || filename == ".." {
		return "", fmt.Errorf("invalid object filename %q", filename)
	}
	key := s.Key(ns, jobID, filename)
	if err := s.backend.Put(ctx, key, data, meta); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	logger.Debugf("Stored %s (%d bytes)", key, len(data))
	return key, nil
}

// FindOne returns the first key listed under {prefix(ns)}/{jobID}/.
// Listing is lexicographic so "first" is stable across backends.
func (s *Store) FindOne(ctx context.Context, ns Namespace, jobID string) (string, error) {
	if !utils.ValidJobID(jobID) {
		return "", ErrInvalidJobID
	}
	objs, err := s.backend.List(ctx, s.jobPrefix(ns, jobID))
	if err != nil {
		return "", fmt.Errorf("list %s objects for %s: %w", ns, jobID, err)
	}
	if len(objs) == 0 {
		return "", ErrNotFound
	}
	return objs[0].Key, nil
}

// FindAll returns every key under {prefix(ns)}/{jobID}/
func (s *Store) FindAll(ctx context.Context, ns Namespace, jobID string) ([]string, error) {
	if !utils.ValidJobID(jobID) {
		return nil, ErrInvalidJobID
	}
	objs, err := s.backend.List(ctx, s.jobPrefix(ns, jobID))
	if err != nil {
		return nil, fmt.Errorf("list %s objects for %s: %w", ns, jobID, err)
	}
	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		keys = append(keys, o.Key)
	}
	return keys, nil
}

// Metadata fetches the metadata map of key without its content
func (s *Store) Metadata(ctx context.Context, key string) (map[string]string, error) {
	meta, err := s.backend.Head(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", key, err)
	}
	if meta == nil {
		meta = map[string]string{}
	}
	return meta, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// SweepExpired deletes every object in the store whose age exceeds maxAge,
// whatever prefix it lives under, and reports what it removed. A failed
// delete is logged and the sweep moves on; the first such error is returned
// at the end.
func (s *Store) SweepExpired(ctx context.Context, maxAge time.Duration) ([]Swept, error) {
	now := s.now()
	var swept []Swept
	var firstErr error

	objs, err := s.backend.List(ctx, "")
	if err != nil {
		return swept, fmt.Errorf("list objects: %w", err)
	}
	for _, o := range objs {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		age := now.Sub(o.LastModified)
		if age <= maxAge {
			continue
		}
		if err := s.Delete(ctx, o.Key); err != nil {
			logger.Errorf("Failed to delete expired object %s: %v", o.Key, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Infof("Deleted expired object %s (age %s)", o.Key, age.Round(time.Second))
		swept = append(swept, Swept{Key: o.Key, Age: age})
	}
	return swept, firstErr
}

// HealthChecker is implemented by backends that can cheaply verify they are reachable
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckHealth asks the backend to verify itself. Backends without a check are assumed healthy.
func (s *Store) CheckHealth(ctx context.Context) error {
	if hc, ok := s.backend.(HealthChecker); ok {
		return hc.CheckHealth(ctx)
	}
	return nil
}
