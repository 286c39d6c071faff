package metrics

import (
	"context"

	"codeberg.org/mutker/nepcollector/internal/series"
)

// Outcome reports what Put did with a point.
type Outcome int

const (
	// Inserted means a new row was written.
	Inserted Outcome = iota + 1
	// AlreadyPresent means the (time, watt) pair was stored before.
	AlreadyPresent
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case AlreadyPresent:
		return "already-present"
	default:
		return "unknown"
	}
}

// Sink stores points idempotently
type Sink interface {
	Put(ctx context.Context, point series.Point) (Outcome, error)
	Close() error
}

// Reader reads stored metrics back
type Reader interface {
	List(ctx context.Context) ([]StoredMetric, error)
}

// Repository defines the interface for metrics data storage
type Repository interface {
	Sink
	Reader
}

// StoredMetric is one persisted row.
type StoredMetric struct {
	ID   int64
	Time string
	Watt int64
}
