package recorder

import (
	"time"

	"github.com/google/uuid"
)

// Format identifies the audio container a capture is written in.
type Format string

// FormatOgg is the default capture format.
const FormatOgg Format = "ogg"

func (f Format) valid() bool {
	return f == FormatOgg
}

// Episode is a recurring scheduled program. Occurrence start times are
// interpreted in the episode's timezone.
type Episode struct {
	ID       uuid.UUID
	Timezone string
}

// Occurrence is one concrete airing of an episode. Start is a zone-naive
// wall-clock value; its meaning depends on the episode's timezone.
type Occurrence struct {
	ID    uuid.UUID
	Start time.Time
}

// Schedule is an episode together with its airings inside a queried window.
// Schedules are fetched fresh per request and never cached.
type Schedule struct {
	Episode     Episode
	Occurrences []Occurrence
}

// Credentials authorize a publisher to connect to the capture listener.
// They are created per request and never persisted; expiry is advisory
// metadata enforced by the listener, not by the recorder.
type Credentials struct {
	Token     string
	ExpiresAt time.Time
}

// Request asks for a recording of the episode occurrence nearest to now.
type Request struct {
	Episode uuid.UUID
	Format  Format
}

// Response carries everything a publisher needs to feed the live stream
// into the recorder.
type Response struct {
	Credentials Credentials
	Host        string
	Port        int
}

// CaptureJob is the full input handed to a stream-runner for one capture.
type CaptureJob struct {
	Episode     Episode
	Occurrence  Occurrence
	Credentials Credentials
	Host        string
	Port        int
	Format      Format
}
