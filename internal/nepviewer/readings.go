package nepviewer

import (
	"context"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"

	"codeberg.org/mutker/nepcollector/internal/errors"
	"codeberg.org/mutker/nepcollector/internal/series"
)

const readingsPath = "/pv_monitor/appservice/detail/"

// sample decodes one [epoch_millis, value] pair. Only the value field is
// coerced: a null or non-numeric value becomes nil, while an item without a
// usable timestamp is skipped.
type sample struct {
	series.RawSample
	skip bool
}

func (s *sample) UnmarshalJSON(b []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || len(fields) == 0 {
		s.skip = true
		return nil
	}

	ms, ok := parseNumber(fields[0])
	if !ok {
		s.skip = true
		return nil
	}
	s.EpochMillis = int64(ms)

	if len(fields) > 1 {
		if v, ok := parseNumber(fields[1]); ok {
			w := int64(v)
			s.Value = &w
		}
	}
	return nil
}

// parseNumber accepts JSON numbers and numeric strings. Fractions are
// truncated by the caller's integer conversion.
func parseNumber(raw json.RawMessage) (float64, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if n == "" {
		return 0, false
	}

	if i, err := n.Int64(); err == nil {
		return float64(i), true
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FetchReadings returns the raw power samples the portal holds for the
// inverter with the given serial number.
func (c *Client) FetchReadings(ctx context.Context, serial string) ([]series.RawSample, error) {
	errFactory := errors.New()

	if serial == "" {
		return nil, errFactory.New(ErrMissingSerial)
	}

	req, err := c.newGetRequest(ctx, c.monitorURL+readingsPath+url.PathEscape(serial))
	if err != nil {
		return nil, err
	}

	_, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	samples, err := decodeSamples(body)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("serial", serial).
		Int("samples", len(samples)).
		Msg("Fetched readings")

	return samples, nil
}

func decodeSamples(body []byte) ([]series.RawSample, error) {
	var items []sample
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, errors.New().Wrap(ErrDecodeFailed, err)
	}

	samples := make([]series.RawSample, 0, len(items))
	for _, item := range items {
		if item.skip {
			continue
		}
		samples = append(samples, item.RawSample)
	}
	return samples, nil
}
