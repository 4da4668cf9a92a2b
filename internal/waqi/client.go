// Package waqi is a client for the World Air Quality Index feed API.
package waqi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/smartcity/airquality/internal/domain"
)

// ErrFeedUnavailable is returned whenever no usable reading could be obtained
var ErrFeedUnavailable = errors.New("waqi: feed unavailable")

// DefaultBaseURL is the public WAQI endpoint
const DefaultBaseURL = "https://api.waqi.info"

// Feed outcomes reported to the Recorder
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeNoToken     = "no_token"
	OutcomeBreakerOpen = "breaker_open"
)

// Recorder counts feed requests by outcome
type Recorder interface {
	ObserveFeed(outcome string)
}

// Options configures a Client
type Options struct {
	Token      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Clock      clockwork.Clock
	Logger     logrus.FieldLogger
	Recorder   Recorder
}

// Client fetches station readings. Safe for concurrent use.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[domain.FeedData]
	clock      clockwork.Clock
	log        logrus.FieldLogger
	recorder   Recorder
}

// New creates a WAQI client
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	log := opts.Logger.WithField("component", "waqi")

	cb := gobreaker.NewCircuitBreaker[domain.FeedData](gobreaker.Settings{
		Name:        "waqi",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithField("from", from.String()).WithField("to", to.String()).Warn("circuit breaker state changed")
		},
	})

	return &Client{
		token:      opts.Token,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		breaker:    cb,
		clock:      opts.Clock,
		log:        log,
		recorder:   opts.Recorder,
	}
}

// FeedByGeo returns the reading of the station nearest to lat/lon
func (c *Client) FeedByGeo(ctx context.Context, lat, lon float64) (domain.FeedData, error) {
	path := fmt.Sprintf("/feed/geo:%s;%s/",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
	)
	return c.fetch(ctx, path)
}

// FeedByCity returns the reading for a city keyword such as "delhi"
func (c *Client) FeedByCity(ctx context.Context, city string) (domain.FeedData, error) {
	return c.fetch(ctx, "/feed/"+url.PathEscape(city)+"/")
}

func (c *Client) fetch(ctx context.Context, path string) (domain.FeedData, error) {
	if c.token == "" {
		c.observe(OutcomeNoToken)
		return domain.FeedData{}, fmt.Errorf("%w: WAQI_API_TOKEN not configured", ErrFeedUnavailable)
	}

	data, err := c.breaker.Execute(func() (domain.FeedData, error) {
		return c.do(ctx, path)
	})
	switch {
	case err == nil:
		c.observe(OutcomeOK)
		return data, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.observe(OutcomeBreakerOpen)
		return domain.FeedData{}, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	default:
		c.observe(OutcomeError)
		c.log.WithError(err).WithField("path", path).Warn("feed request failed")
		return domain.FeedData{}, err
	}
}

func (c *Client) do(ctx context.Context, path string) (domain.FeedData, error) {
	endpoint := c.baseURL + path + "?token=" + url.QueryEscape(c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.FeedData{}, fmt.Errorf("%w: failed to create request: %v", ErrFeedUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FeedData{}, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.FeedData{}, fmt.Errorf("%w: upstream returned %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var envelope feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.FeedData{}, fmt.Errorf("%w: failed to decode response: %v", ErrFeedUnavailable, err)
	}
	if envelope.Status != "ok" {
		return domain.FeedData{}, fmt.Errorf("%w: status %q: %s", ErrFeedUnavailable, envelope.Status, envelope.message())
	}

	var payload feedPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return domain.FeedData{}, fmt.Errorf("%w: failed to decode data: %v", ErrFeedUnavailable, err)
	}
	return payload.toFeedData(c.clock.Now())
}
