package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"broadcast-recorder/internal/platform/metrics"

	"github.com/google/uuid"
)

// Defaults for the search window and credential lifetime.
const (
	DefaultWindow  = time.Hour
	DefaultTimeout = time.Hour
)

// releaseGrace bounds the port release performed by a detached watcher.
const releaseGrace = 10 * time.Second

// ScheduleSource queries the external schedule service for schedules of one
// episode inside a time window.
type ScheduleSource interface {
	Schedule(ctx context.Context, episodeID uuid.UUID, start, end time.Time) ([]Schedule, error)
}

// Stream is a handle to a running capture. Wait blocks until the capture
// process terminates; the runner performs its own teardown.
type Stream interface {
	Wait() error
}

// StreamRunner starts the external capture process for a job. Run may fail
// before the capture is established; after a successful Run the only
// teardown path is natural termination observed through the Stream.
type StreamRunner interface {
	Run(ctx context.Context, job CaptureJob) (Stream, error)
}

// Options configure a Service. Zero values fall back to defaults.
type Options struct {
	// Host is the listener host publishers connect to; returned verbatim in
	// responses and handed to the stream-runner.
	Host string

	// Window is the half-width of the symmetric occurrence search window.
	Window time.Duration

	// Timeout is the credential lifetime from issuance.
	Timeout time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service coordinates one recording end to end: resolve the nearest
// occurrence, issue credentials, allocate a port, start the capture, and
// supervise it until termination frees the port again.
type Service struct {
	schedules ScheduleSource
	runner    StreamRunner
	ports     *PortPool

	host    string
	window  time.Duration
	timeout time.Duration

	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	watchers watcherGroup
}

// NewService wires a Service from its collaborators. Metrics may be nil to
// disable metric recording (e.g. in tests).
func NewService(schedules ScheduleSource, runner StreamRunner, ports *PortPool, opts Options) *Service {
	if opts.Host == "" {
		opts.Host = "0.0.0.0"
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		schedules: schedules,
		runner:    runner,
		ports:     ports,
		host:      opts.Host,
		window:    opts.Window,
		timeout:   opts.Timeout,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Now,
	}
}

// Record starts a recording for the occurrence of the requested episode
// nearest to now and returns the connection details for the publisher.
//
// The synchronous path covers resolving, preparing, and starting the capture;
// any failure there surfaces here, and a failure after the port was allocated
// releases it before returning. Once the capture is running its completion is
// supervised out-of-band: a detached watcher frees the port when the capture
// terminates, successfully or not, and nothing is reported back.
func (s *Service) Record(ctx context.Context, req Request) (Response, error) {
	format := req.Format
	if format == "" {
		format = FormatOgg
	}
	if !format.valid() {
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownFormat, req.Format)
	}

	reference := s.now()
	start, end := timeWindow(reference, s.window)

	schedule, err := s.resolveSchedule(ctx, req.Episode, start, end)
	if err != nil {
		return Response{}, err
	}

	occurrence, err := nearestOccurrence(reference, schedule.Episode.Timezone, schedule.Occurrences)
	if err != nil {
		return Response{}, err
	}

	credentials, err := issueCredentials(reference, s.timeout)
	if err != nil {
		return Response{}, err
	}

	port, err := s.ports.Allocate(ctx)
	if err != nil {
		if errors.Is(err, ErrNoPortsAvailable) {
			return Response{}, err
		}
		return Response{}, &UpstreamError{Op: "allocate port", Err: err}
	}

	job := CaptureJob{
		Episode:     schedule.Episode,
		Occurrence:  occurrence,
		Credentials: credentials,
		Host:        s.host,
		Port:        port,
		Format:      format,
	}

	stream, err := s.runner.Run(ctx, job)
	if err != nil {
		// Compensating release: the port must be observably free before the
		// error reaches the caller.
		s.releasePort(ctx, port)
		if s.metrics != nil {
			s.metrics.IncRecordingsFailed()
		}
		return Response{}, fmt.Errorf("start capture: %w", err)
	}

	s.watch(stream, job)

	if s.metrics != nil {
		s.metrics.IncRecordingsStarted()
	}
	s.log.Info("recording started",
		slog.String("episode", schedule.Episode.ID.String()),
		slog.String("occurrence", occurrence.ID.String()),
		slog.Int("port", port),
		slog.String("format", string(format)),
	)

	return Response{Credentials: credentials, Host: s.host, Port: port}, nil
}

// Drain waits for all in-flight capture watchers to finish or ctx to expire.
// Called during shutdown so running captures can terminate and free their
// ports.
func (s *Service) Drain(ctx context.Context) error {
	return s.watchers.Drain(ctx)
}

// resolveSchedule fetches schedules for the episode in [start, end] and picks
// the first whose episode id matches exactly; extras are ignored.
func (s *Service) resolveSchedule(ctx context.Context, episodeID uuid.UUID, start, end time.Time) (Schedule, error) {
	schedules, err := s.schedules.Schedule(ctx, episodeID, start, end)
	if err != nil {
		return Schedule{}, &UpstreamError{Op: "query schedule service", Err: err}
	}

	for _, schedule := range schedules {
		if schedule.Episode.ID == episodeID {
			return schedule, nil
		}
	}
	return Schedule{}, fmt.Errorf("%w: %s", ErrScheduleNotFound, episodeID)
}

// watch registers a detached watcher that waits for the capture to terminate
// and releases its port unconditionally, regardless of outcome.
func (s *Service) watch(stream Stream, job CaptureJob) {
	if s.metrics != nil {
		s.metrics.IncActiveRecordings()
	}

	s.watchers.Go(func() {
		defer func() {
			if s.metrics != nil {
				s.metrics.DecActiveRecordings()
			}
		}()

		if err := stream.Wait(); err != nil {
			s.log.Error("capture terminated with error",
				slog.String("episode", job.Episode.ID.String()),
				slog.Int("port", job.Port),
				slog.String("error", err.Error()),
			)
		} else {
			s.log.Info("capture finished",
				slog.String("episode", job.Episode.ID.String()),
				slog.Int("port", job.Port),
			)
		}

		// Detached from any request context; the port must be freed even
		// though the originating request is long gone.
		ctx, cancel := context.WithTimeout(context.Background(), releaseGrace)
		defer cancel()
		s.releasePort(ctx, job.Port)
	})
}

func (s *Service) releasePort(ctx context.Context, port int) {
	if err := s.ports.Release(ctx, port); err != nil {
		s.log.Error("release port failed",
			slog.Int("port", port),
			slog.String("error", err.Error()),
		)
	}
}
