package collector

import (
	"context"

	"codeberg.org/mutker/nepcollector/internal/metrics"
	"codeberg.org/mutker/nepcollector/internal/nepviewer"
	"codeberg.org/mutker/nepcollector/internal/series"
)

// Authenticator acquires a portal session.
type Authenticator interface {
	Authenticate(ctx context.Context, creds nepviewer.Credentials) (nepviewer.Session, error)
}

// Fetcher reads raw samples for one inverter.
type Fetcher interface {
	FetchReadings(ctx context.Context, serial string) ([]series.RawSample, error)
}

// StatusFetcher reads the live inverter status.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, serial string) (nepviewer.Status, error)
}

// Sink persists points idempotently.
type Sink interface {
	Put(ctx context.Context, point series.Point) (metrics.Outcome, error)
}

// Stage identifies how far a run got.
type Stage string

const (
	StageAuthenticate Stage = "authenticate"
	StageFetch        Stage = "fetch"
	StageTransform    Stage = "transform"
	StagePersist      Stage = "persist"
	StageDone         Stage = "done"
)

// Tally counts what persistence did with each point.
type Tally struct {
	Inserted int
	Skipped  int
	Failed   int
}

// Result describes one collection run. On a persistence failure it holds
// what was achieved before the run stopped.
type Result struct {
	RunID  string
	Serial string
	Stage  Stage
	Series []series.Point
	Tally  Tally
}
