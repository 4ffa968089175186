// Package store keeps asynchronously generated statements in Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/statements/internal/accounting/shared"
	"github.com/odyssey-erp/statements/internal/accounting/statements"
)

const keyPrefix = "statements:report:"

// Status tracks an asynchronous generation.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Result is the stored state of one asynchronous generation.
type Result struct {
	ID        string             `json:"id"`
	Status    Status             `json:"status"`
	Request   statements.Request `json:"request"`
	Report    *statements.Report `json:"report,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Store persists results as JSON documents with a retention TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	clock  func() time.Time
}

// New constructs a Store. A non-positive ttl keeps results for 24 hours.
func New(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl, clock: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the timestamp source for deterministic tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Create records a pending generation and returns its id.
func (s *Store) Create(ctx context.Context, req statements.Request) (Result, error) {
	now := s.clock()
	res := Result{ID: uuid.NewString(), Status: StatusPending, Request: req, CreatedAt: now, UpdatedAt: now}
	if err := s.put(ctx, res); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Complete stores the generated report.
func (s *Store) Complete(ctx context.Context, id string, report statements.Report) error {
	return s.update(ctx, id, func(res *Result) {
		res.Status = StatusDone
		res.Report = &report
		res.Error = ""
	})
}

// Fail records a generation failure.
func (s *Store) Fail(ctx context.Context, id string, cause error) error {
	return s.update(ctx, id, func(res *Result) {
		res.Status = StatusFailed
		res.Report = nil
		if cause != nil {
			res.Error = cause.Error()
		}
	})
}

// Get loads a result by id.
func (s *Store) Get(ctx context.Context, id string) (Result, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Result{}, shared.Invalid("report id %q is not a uuid", id)
	}
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, fmt.Errorf("%w: %s", shared.ErrReportNotFound, id)
	}
	if err != nil {
		return Result{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return res, nil
}

func (s *Store) update(ctx context.Context, id string, mutate func(*Result)) error {
	res, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	mutate(&res)
	res.UpdatedAt = s.clock()
	return s.put(ctx, res)
}

func (s *Store) put(ctx context.Context, res Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", res.ID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+res.ID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store: set %s: %w", res.ID, err)
	}
	return nil
}
