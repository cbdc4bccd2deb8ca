package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spending/internal/core"
	"spending/internal/store"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

var ErrInvalidPagination = errors.New("invalid pagination")

// ActivityPublisher announces that an account's activities changed.
// amqp.Client implements it.
type ActivityPublisher interface {
	PublishActivityChanged(ctx context.Context, a core.Activity) error
	Close() error
}

// CacheInvalidator drops cached results for an account.
type CacheInvalidator interface {
	Invalidate(accountID int64)
}

// ActivityCounter is told about every activity created.
type ActivityCounter interface {
	RecordActivityCreated()
}

// ActivityService orchestrates activity writes across storage, AMQP and the
// spending cache.
type ActivityService struct {
	writer      store.ActivityWriter
	lister      store.ActivityLister
	publisher   ActivityPublisher
	invalidator CacheInvalidator
	counter     ActivityCounter
}

type ActivityOption func(*ActivityService)

func WithPublisher(p ActivityPublisher) ActivityOption {
	return func(s *ActivityService) { s.publisher = p }
}

func WithCacheInvalidator(i CacheInvalidator) ActivityOption {
	return func(s *ActivityService) { s.invalidator = i }
}

func WithActivityCounter(c ActivityCounter) ActivityOption {
	return func(s *ActivityService) { s.counter = c }
}

func NewActivityService(writer store.ActivityWriter, lister store.ActivityLister, opts ...ActivityOption) *ActivityService {
	s := &ActivityService{writer: writer, lister: lister}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and saves an activity, then publishes a change message.
// A failed publish is logged; the activity is already stored.
func (s *ActivityService) Create(ctx context.Context, a core.Activity) (core.Activity, error) {
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}

	saved, err := s.writer.CreateActivity(ctx, a)
	if err != nil {
		return core.Activity{}, fmt.Errorf("save activity: %w", err)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(saved.AccountID)
	}
	if s.counter != nil {
		s.counter.RecordActivityCreated()
	}

	if err := s.publishChange(ctx, saved); err != nil {
		slog.ErrorContext(ctx, "Failed to publish activity change",
			"activity_id", saved.ID,
			"account_id", saved.AccountID,
			"error", err)
		// Don't fail the request - activity is saved
	}

	slog.InfoContext(ctx, "Activity created",
		"activity_id", saved.ID,
		"account_id", saved.AccountID,
		"category", saved.Category,
		"recurrence_kind", saved.Recurrence.Kind(),
		"expense_cents", saved.Expense.Cents)

	return saved, nil
}

// List returns one page of an account's activities. A zero limit means
// DefaultListLimit.
func (s *ActivityService) List(ctx context.Context, accountID int64, offset, limit int) ([]core.Activity, error) {
	if accountID <= 0 {
		return nil, core.ErrInvalidAccount
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0, got %d", ErrInvalidPagination, offset)
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidPagination, MaxListLimit, limit)
	}

	items, err := s.lister.ListActivities(ctx, accountID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return items, nil
}

func (s *ActivityService) publishChange(ctx context.Context, a core.Activity) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping change message")
		return nil
	}
	return s.publisher.PublishActivityChanged(ctx, a)
}

// Close closes the publisher connection.
func (s *ActivityService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close activity service: %w", err)
	}
	return nil
}
