// Package collector runs one collection cycle: authenticate, fetch, clean up
// the series, persist it.
package collector

import (
	"context"

	"codeberg.org/mutker/nepcollector/internal/errors"
	"codeberg.org/mutker/nepcollector/internal/logger"
	"codeberg.org/mutker/nepcollector/internal/metrics"
	"codeberg.org/mutker/nepcollector/internal/nepviewer"
	"codeberg.org/mutker/nepcollector/internal/series"
	"github.com/google/uuid"
)

// Remote is the portal side of a run.
type Remote interface {
	Authenticator
	Fetcher
	StatusFetcher
}

type Collector struct {
	remote Remote
	sink   Sink
	log    logger.Logger
	newID  func() string
}

func New(remote Remote, sink Sink, log logger.Logger) *Collector {
	return &Collector{
		remote: remote,
		sink:   sink,
		log:    log,
		newID:  uuid.NewString,
	}
}

// Run collects the readings of the inverter with the given serial number and
// stores every distinct (time, watt) pair once. Stage failures end the run;
// rows written before a failure stay written.
func (c *Collector) Run(ctx context.Context, creds nepviewer.Credentials, serial string) (*Result, error) {
	errFactory := errors.New()

	res := &Result{
		RunID:  c.newID(),
		Serial: serial,
		Stage:  StageAuthenticate,
	}
	log := c.log.With("run_id", res.RunID).With("serial", serial)

	if serial == "" {
		return res, errFactory.WithMessage(ErrInvalidArgument, "serial number is required")
	}

	log.Info().Msg("Authenticating")
	if _, err := c.remote.Authenticate(ctx, creds); err != nil {
		return res, errFactory.Wrap(ErrAuthFailed, err)
	}

	res.Stage = StageFetch
	log.Info().Msg("Fetching readings")
	samples, err := c.remote.FetchReadings(ctx, serial)
	if err != nil {
		return res, errFactory.Wrap(ErrFetchFailed, err)
	}

	res.Stage = StageTransform
	res.Series = series.Sort(series.Reconcile(series.Normalize(samples)))
	log.Info().
		Int("samples", len(samples)).
		Int("points", len(res.Series)).
		Msg("Readings normalized")

	res.Stage = StagePersist
	if err := c.persist(ctx, log, res); err != nil {
		return res, err
	}

	res.Stage = StageDone
	log.Info().
		Int("inserted", res.Tally.Inserted).
		Int("skipped", res.Tally.Skipped).
		Int("failed", res.Tally.Failed).
		Msg("Collection finished")

	return res, nil
}

func (c *Collector) persist(ctx context.Context, log logger.Logger, res *Result) error {
	errFactory := errors.New()

	for _, p := range res.Series {
		if err := ctx.Err(); err != nil {
			return errFactory.Wrap(ErrOperationTimeout, err)
		}

		outcome, err := c.sink.Put(ctx, p)
		switch {
		case err == nil:
		case errors.HasCode(err, metrics.ErrStoreUnavailable):
			log.Error().Err(err).Msg("Metrics store unavailable, aborting persistence")
			return errFactory.Wrap(ErrPersistFailed, err)
		case errors.HasCode(err, ErrOperationTimeout):
			return err
		default:
			res.Tally.Failed++
			log.Warn().
				Err(err).
				Time("time", p.Timestamp).
				Int64("watt", p.Watt).
				Msg("Failed to store metric, continuing")
			continue
		}

		switch outcome {
		case metrics.Inserted:
			res.Tally.Inserted++
			log.Debug().Time("time", p.Timestamp).Int64("watt", p.Watt).Msg("Metric inserted")
		case metrics.AlreadyPresent:
			res.Tally.Skipped++
			log.Debug().Time("time", p.Timestamp).Int64("watt", p.Watt).Msg("Metric already exists and was not inserted")
		}
	}

	return nil
}

// Status authenticates and reads the live status of the inverter.
func (c *Collector) Status(ctx context.Context, creds nepviewer.Credentials, serial string) (nepviewer.Status, error) {
	errFactory := errors.New()

	if serial == "" {
		return nepviewer.Status{}, errFactory.WithMessage(ErrInvalidArgument, "serial number is required")
	}

	if _, err := c.remote.Authenticate(ctx, creds); err != nil {
		return nepviewer.Status{}, errFactory.Wrap(ErrAuthFailed, err)
	}

	status, err := c.remote.FetchStatus(ctx, serial)
	if err != nil {
		return nepviewer.Status{}, errFactory.Wrap(ErrFetchFailed, err)
	}

	c.log.Info().
		Str("serial", serial).
		Float64("now", status.Now).
		Time("last_update", status.LastUpdate).
		Msg("Inverter status")

	return status, nil
}
