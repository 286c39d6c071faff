package nepviewer

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"codeberg.org/mutker/nepcollector/internal/errors"
)

const statusPath = "/pv_monitor/proxy/status/"

// Status is the live state of an inverter.
type Status struct {
	// Now is the current output as reported by the portal.
	Now float64
	// LastUpdate is when the inverter last reported, truncated to seconds.
	LastUpdate time.Time
}

type statusResponse struct {
	Now        json.RawMessage `json:"now"`
	LastUpdate json.RawMessage `json:"LastUpDate_Stamp"`
}

// FetchStatus reads the live status of the inverter.
func (c *Client) FetchStatus(ctx context.Context, serial string) (Status, error) {
	errFactory := errors.New()

	if serial == "" {
		return Status{}, errFactory.New(ErrMissingSerial)
	}

	req, err := c.newGetRequest(ctx, c.userURL+statusPath+url.PathEscape(serial)+"/0/2/")
	if err != nil {
		return Status{}, err
	}

	_, body, err := c.do(req)
	if err != nil {
		return Status{}, err
	}

	var res statusResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return Status{}, errFactory.Wrap(ErrDecodeFailed, err)
	}

	stamp, ok := parseNumber(res.LastUpdate)
	if !ok || stamp <= 0 {
		return Status{}, errFactory.WithMessage(ErrDecodeFailed, "status has no valid LastUpDate_Stamp")
	}

	now, _ := parseNumber(res.Now)

	return Status{
		Now:        now,
		LastUpdate: time.Unix(int64(stamp), 0).UTC(),
	}, nil
}
