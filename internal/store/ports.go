// Package store declares the outbound ports the services depend on.
package store

import (
	"context"
	"errors"

	"spending/internal/core"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	ActivityWriter interface {
		// CreateActivity persists a validated activity and returns it with its ID set.
		CreateActivity(ctx context.Context, a core.Activity) (core.Activity, error)
	}

	// ActivityLister pages through an account's activities, newest ID first.
	ActivityLister interface {
		ListActivities(ctx context.Context, accountID int64, offset, limit int) ([]core.Activity, error)
	}

	// CandidateLister returns the activities of an account that could have an
	// occurrence in w: start <= w.End and (no end or end >= w.Start). An empty
	// category matches all.
	CandidateLister interface {
		ListCandidates(ctx context.Context, accountID int64, w core.Window, category core.Category) ([]core.Activity, error)
	}

	SnapshotWriter interface {
		SaveSnapshot(ctx context.Context, s core.SpendSnapshot) error
	}

	// SnapshotReader returns the most recently computed snapshot of an account,
	// or ErrNotFound.
	SnapshotReader interface {
		LatestSnapshot(ctx context.Context, accountID int64) (core.SpendSnapshot, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Backend is everything a storage implementation provides.
	Backend interface {
		ActivityWriter
		ActivityLister
		CandidateLister
		SnapshotWriter
		SnapshotReader
		Pinger
		Close() error
	}
)
