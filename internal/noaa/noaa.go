// Package noaa fetches high and low tide predictions from the NOAA CO-OPS
// data API and supplies them to the clock.
package noaa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/tide-clock/internal/tideclock"
)

// timeLayout is the format of the "t" field when time_zone=gmt.
const timeLayout = "2006-01-02 15:04"

// Hours of predictions requested, starting at midnight GMT today.
const predictionRange = 48

var ErrNoUpcomingTide = errors.New("no tide predicted after now")

// Config selects the station and server.
type Config struct {
	Server      string
	Station     string
	Application string
	Timeout     time.Duration
}

// Prediction is one high or low tide.
type Prediction struct {
	Kind   tideclock.Kind
	Time   time.Time
	Height float64
}

// Event converts the prediction into a clock target.
func (p Prediction) Event() tideclock.TideEvent {
	return tideclock.TideEvent{Kind: p.Kind, Time: p.Time}
}

type response struct {
	Predictions []struct {
		Time   string `json:"t"`
		Height string `json:"v"`
		Type   string `json:"type"`
	} `json:"predictions"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls the datagetter endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// New creates a client. A zero timeout means no timeout.
func New(cfg Config, logger zerolog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *Client) requestURL(now time.Time) (string, error) {
	u, err := url.Parse(c.cfg.Server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	q := url.Values{}
	q.Set("product", "predictions")
	q.Set("interval", "hilo")
	q.Set("range", strconv.Itoa(predictionRange))
	q.Set("begin_date", now.UTC().Format("20060102"))
	q.Set("station", c.cfg.Station)
	q.Set("time_zone", "gmt")
	q.Set("datum", "MLLW")
	q.Set("units", "english")
	q.Set("format", "json")
	q.Set("application", c.cfg.Application)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Predictions returns the high and low tides for the prediction window that
// contains now, in the order the server lists them.
func (c *Client) Predictions(ctx context.Context, now time.Time) ([]Prediction, error) {
	reqURL, err := c.requestURL(now)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch predictions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch predictions: unexpected status %s", resp.Status)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("station %s: %s", c.cfg.Station, body.Error.Message)
	}

	var out []Prediction
	for _, p := range body.Predictions {
		var kind tideclock.Kind
		switch p.Type {
		case "H":
			kind = tideclock.High
		case "L":
			kind = tideclock.Low
		default:
			continue
		}
		t, err := time.ParseInLocation(timeLayout, p.Time, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse prediction time %q: %w", p.Time, err)
		}
		height, err := strconv.ParseFloat(p.Height, 64)
		if err != nil {
			c.logger.Debug().Str("value", p.Height).Msg("Prediction height not numeric")
		}
		out = append(out, Prediction{Kind: kind, Time: t, Height: height})
	}
	return out, nil
}

// NextTide returns the first prediction strictly after now.
func (c *Client) NextTide(ctx context.Context, now time.Time) (Prediction, error) {
	predictions, err := c.Predictions(ctx, now)
	if err != nil {
		return Prediction{}, err
	}
	for _, p := range predictions {
		if p.Time.After(now) {
			return p, nil
		}
	}
	return Prediction{}, ErrNoUpcomingTide
}

// Supplier adapts the client to the clock. Every failure becomes an
// Unavailable event; the clock retries on its own schedule.
func (c *Client) Supplier(now func() time.Time) tideclock.Supplier {
	return func() tideclock.TideEvent {
		ctx := context.Background()
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}

		p, err := c.NextTide(ctx, now())
		if err != nil {
			c.logger.Warn().Err(err).Str("station", c.cfg.Station).Msg("Tide prediction unavailable")
			return tideclock.UnavailableEvent()
		}

		c.logger.Info().
			Str("station", c.cfg.Station).
			Str("tide", string(p.Kind)).
			Time("at", p.Time).
			Float64("height_ft", p.Height).
			Msg("Next tide")
		return p.Event()
	}
}
