// Package schedule is the HTTP client for the external schedule service,
// which knows about episodes and their concrete airings.
package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"broadcast-recorder/internal/recorder"

	"github.com/google/uuid"
)

// wallClockLayout is the zone-naive form occurrence starts arrive in. Their
// timezone is carried separately on the episode.
const wallClockLayout = "2006-01-02T15:04:05"

// Client queries the schedule service over HTTP.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for the schedule service at base.
func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Schedule implements recorder.ScheduleSource. It asks for schedules of the
// given episode whose occurrences fall inside [start, end].
func (c *Client) Schedule(ctx context.Context, episodeID uuid.UUID, start, end time.Time) ([]recorder.Schedule, error) {
	q := url.Values{}
	q.Set("id", episodeID.String())
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))

	req, _ := http.NewRequestWithContext(ctx, "GET", c.base+"/schedule?"+q.Encode(), nil)
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schedule service returned status %d", res.StatusCode)
	}

	var p struct {
		Schedules []struct {
			Event struct {
				ID       uuid.UUID `json:"id"`
				Timezone string    `json:"timezone"`
			} `json:"event"`
			Instances []struct {
				ID    uuid.UUID `json:"id"`
				Start wallClock `json:"start"`
			} `json:"instances"`
		} `json:"schedules"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode schedule response: %w", err)
	}

	out := make([]recorder.Schedule, 0, len(p.Schedules))
	for _, s := range p.Schedules {
		schedule := recorder.Schedule{
			Episode: recorder.Episode{
				ID:       s.Event.ID,
				Timezone: s.Event.Timezone,
			},
		}
		for _, inst := range s.Instances {
			schedule.Occurrences = append(schedule.Occurrences, recorder.Occurrence{
				ID:    inst.ID,
				Start: inst.Start.Time,
			})
		}
		out = append(out, schedule)
	}
	return out, nil
}

// wallClock decodes a zone-naive datetime string.
type wallClock struct {
	time.Time
}

func (w *wallClock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(wallClockLayout, s)
	if err != nil {
		return fmt.Errorf("parse occurrence start %q: %w", s, err)
	}
	w.Time = t
	return nil
}
