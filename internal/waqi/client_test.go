package waqi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/observability"
)

const okFeed = `{
  "status": "ok",
  "data": {
    "aqi": 156,
    "iaqi": {"pm25": {"v": 85}, "pm10": {"v": 120}, "no2": {"v": 45.5}, "co": {"v": 1.8}, "t": {"v": 24}},
    "city": {"name": "Anand Vihar, Delhi"},
    "time": {"iso": "2025-11-15T08:00:00+05:30"}
  }
}`

type countingRecorder struct {
	outcomes []string
}

func (r *countingRecorder) ObserveFeed(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, rec Recorder) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		Token:    "secret",
		BaseURL:  srv.URL,
		Timeout:  time.Second,
		Logger:   observability.NewDiscardLogger(),
		Recorder: rec,
	})
}

func TestFeedByGeo(t *testing.T) {
	var gotPath, gotToken string
	rec := &countingRecorder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		w.Write([]byte(okFeed))
	}, rec)

	data, err := c.FeedByGeo(context.Background(), 28.6139, 77.209)
	require.NoError(t, err)

	assert.Equal(t, "/feed/geo:28.6139;77.209/", gotPath)
	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, 156.0, data.AQI)
	assert.Equal(t, domain.PollutantSnapshot{domain.PM25: 85, domain.PM10: 120, domain.NO2: 45.5, domain.CO: 1.8}, data.Pollutants)
	assert.Equal(t, "Anand Vihar, Delhi", data.Station)
	assert.Equal(t, 2025, data.ObservedAt.Year())
	assert.Equal(t, []string{OutcomeOK}, rec.outcomes)
}

func TestFeedByCity(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(okFeed))
	}, nil)

	_, err := c.FeedByCity(context.Background(), "delhi")
	require.NoError(t, err)
	assert.Equal(t, "/feed/delhi/", gotPath)
}

func TestFeed_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		outcome string
	}{
		{"non-200", http.StatusInternalServerError, `oops`, OutcomeError},
		{"status error", http.StatusOK, `{"status":"error","data":"Invalid key"}`, OutcomeError},
		{"dash aqi", http.StatusOK, `{"status":"ok","data":{"aqi":"-","iaqi":{}}}`, OutcomeError},
		{"garbage", http.StatusOK, `{not json`, OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &countingRecorder{}
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, rec)

			_, err := c.FeedByGeo(context.Background(), 28.6, 77.2)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFeedUnavailable), "got %v", err)
			assert.Equal(t, []string{tt.outcome}, rec.outcomes)
		})
	}
}

func TestFeed_NumericStringAQI(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","data":{"aqi":"201","iaqi":{"pm25":{"v":"-"}}}}`))
	}, nil)

	data, err := c.FeedByGeo(context.Background(), 28.6, 77.2)
	require.NoError(t, err)
	assert.Equal(t, 201.0, data.AQI)
	assert.Empty(t, data.Pollutants)
}

func TestFeed_NoToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	rec := &countingRecorder{}
	c := New(Options{BaseURL: srv.URL, Logger: observability.NewDiscardLogger(), Recorder: rec})

	_, err := c.FeedByCity(context.Background(), "delhi")

	assert.ErrorIs(t, err, ErrFeedUnavailable)
	assert.False(t, called)
	assert.Equal(t, []string{OutcomeNoToken}, rec.outcomes)
}

func TestFeed_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := New(Options{Token: "secret", BaseURL: base, Logger: observability.NewDiscardLogger()})

	_, err := c.FeedByGeo(context.Background(), 28.6, 77.2)
	assert.ErrorIs(t, err, ErrFeedUnavailable)
}

func TestFeed_BreakerOpens(t *testing.T) {
	hits := 0
	rec := &countingRecorder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}, rec)

	for i := 0; i < 8; i++ {
		_, err := c.FeedByGeo(context.Background(), 28.6, 77.2)
		assert.ErrorIs(t, err, ErrFeedUnavailable)
	}

	assert.Equal(t, 6, hits)
	assert.Equal(t, OutcomeBreakerOpen, rec.outcomes[len(rec.outcomes)-1])
}
