package waqi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/smartcity/airquality/internal/domain"
)

// feedResponse is the outer WAQI envelope. On failure data is an error string.
type feedResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (r feedResponse) message() string {
	var s string
	if err := json.Unmarshal(r.Data, &s); err == nil {
		return s
	}
	return "no message"
}

type iaqiEntry struct {
	V number `json:"v"`
}

type feedPayload struct {
	AQI  number               `json:"aqi"`
	IAQI map[string]iaqiEntry `json:"iaqi"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	Time struct {
		ISO string `json:"iso"`
	} `json:"time"`
}

func (p feedPayload) toFeedData(now time.Time) (domain.FeedData, error) {
	if !p.AQI.valid {
		return domain.FeedData{}, fmt.Errorf("%w: station reports no AQI value", ErrFeedUnavailable)
	}

	pollutants := make(domain.PollutantSnapshot, len(domain.Pollutants))
	for _, code := range domain.Pollutants {
		if v, ok := p.IAQI[string(code)]; ok && v.V.valid {
			pollutants[code] = v.V.value
		}
	}

	observed := now
	if t, err := time.Parse(time.RFC3339, p.Time.ISO); err == nil {
		observed = t
	}

	return domain.FeedData{
		AQI:        p.AQI.value,
		Pollutants: pollutants,
		Station:    p.City.Name,
		ObservedAt: observed,
	}, nil
}

// number accepts a JSON number or a numeric string. WAQI sends "-" for
// stations without data, which decodes as invalid rather than failing.
type number struct {
	value float64
	valid bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		n.value, n.valid = f, true
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("waqi: value is neither number nor string: %s", b)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		n.valid = false
		return nil
	}
	n.value, n.valid = f, true
	return nil
}
