// Package runner starts and owns the external capture process. It listens
// for the publisher's SRT stream on the allocated port and writes the capture
// to the recordings directory.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"broadcast-recorder/internal/recorder"
)

// startNameLayout names capture files after the occurrence's wall-clock start.
const startNameLayout = "20060102T150405"

// Config configures the ffmpeg runner.
type Config struct {
	// Binary is the ffmpeg executable; defaults to "ffmpeg" on PATH.
	Binary string

	// Directory is where captures are written, one subdirectory per episode.
	Directory string
}

// FFmpeg runs captures as ffmpeg subprocesses. It implements
// recorder.StreamRunner.
type FFmpeg struct {
	binary string
	dir    string
	log    *slog.Logger
	now    func() time.Time
}

// New returns an FFmpeg runner with the given config.
func New(cfg Config, log *slog.Logger) *FFmpeg {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	return &FFmpeg{
		binary: cfg.Binary,
		dir:    cfg.Directory,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run implements recorder.StreamRunner.Run. It starts ffmpeg as an SRT
// listener on the job's port; the process terminates on its own when the
// publisher disconnects or the listen timeout expires.
func (r *FFmpeg) Run(ctx context.Context, job recorder.CaptureJob) (recorder.Stream, error) {
	out := r.outputPath(job)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("create capture directory: %w", err)
	}

	// The process deliberately outlives the request context: once started,
	// the only teardown path is natural capture termination.
	cmd := exec.Command(r.binary, buildArgs(job, out, r.now())...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", r.binary, err)
	}

	r.log.Debug("capture process started",
		slog.Int("pid", cmd.Process.Pid),
		slog.Int("port", job.Port),
		slog.String("output", out),
	)

	return &process{cmd: cmd}, nil
}

func (r *FFmpeg) outputPath(job recorder.CaptureJob) string {
	name := job.Occurrence.Start.Format(startNameLayout) + "." + string(job.Format)
	return filepath.Join(r.dir, job.Episode.ID.String(), name)
}

// buildArgs assembles the ffmpeg invocation: an SRT listener input guarded by
// the credential token, copied without re-encoding into the target container.
// The listener gives up if no publisher connects before the credentials
// expire.
func buildArgs(job recorder.CaptureJob, out string, now time.Time) []string {
	timeout := job.Credentials.ExpiresAt.Sub(now).Microseconds()
	if timeout < 0 {
		timeout = 0
	}

	input := fmt.Sprintf(
		"srt://%s:%d?mode=listener&listen_timeout=%d&passphrase=%s",
		job.Host, job.Port, timeout, job.Credentials.Token,
	)

	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-acodec", "copy",
		"-f", string(job.Format),
		"-y", out,
	}
}

// process wraps the running subprocess as a recorder.Stream.
type process struct {
	cmd *exec.Cmd
}

// Wait implements recorder.Stream.Wait.
func (p *process) Wait() error {
	return p.cmd.Wait()
}
