package runner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"broadcast-recorder/internal/recorder"

	"github.com/google/uuid"
)

func testJob() recorder.CaptureJob {
	return recorder.CaptureJob{
		Episode: recorder.Episode{
			ID:       uuid.MustParse("6f1d1c9e-9b4e-4a6d-8c1a-2f4b9d7e3a10"),
			Timezone: "UTC",
		},
		Occurrence: recorder.Occurrence{
			ID:    uuid.New(),
			Start: time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC),
		},
		Credentials: recorder.Credentials{
			Token:     "deadbeefdeadbeefdeadbeefdeadbeef",
			ExpiresAt: time.Date(2024, 5, 1, 12, 1, 30, 0, time.UTC),
		},
		Host:   "recorder.example",
		Port:   41000,
		Format: recorder.FormatOgg,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestBuildArgs(t *testing.T) {
	job := testJob()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	args := strings.Join(buildArgs(job, "/tmp/out.ogg", now), " ")

	// 90s until credential expiry, in microseconds.
	wantInput := "srt://recorder.example:41000?mode=listener&listen_timeout=90000000&passphrase=deadbeefdeadbeefdeadbeefdeadbeef"
	if !strings.Contains(args, wantInput) {
		t.Errorf("args missing SRT input %q:\n%s", wantInput, args)
	}
	if !strings.Contains(args, "-acodec copy") {
		t.Errorf("args missing codec copy: %s", args)
	}
	if !strings.Contains(args, "-f ogg") {
		t.Errorf("args missing format: %s", args)
	}
	if !strings.HasSuffix(args, "/tmp/out.ogg") {
		t.Errorf("args should end with output path: %s", args)
	}
}

func TestBuildArgs_expired_credentials(t *testing.T) {
	job := testJob()
	now := job.Credentials.ExpiresAt.Add(time.Minute)

	args := strings.Join(buildArgs(job, "/tmp/out.ogg", now), " ")
	if !strings.Contains(args, "listen_timeout=0&") {
		t.Errorf("expired credentials should clamp listen_timeout to 0: %s", args)
	}
}

func TestOutputPath(t *testing.T) {
	r := New(Config{Directory: "/var/recordings"}, testLogger())
	job := testJob()

	got := r.outputPath(job)
	want := filepath.Join("/var/recordings", job.Episode.ID.String(), "20240501T140000.ogg")
	if got != want {
		t.Errorf("outputPath = %q, want %q", got, want)
	}
}

func TestFFmpeg_Run_missing_binary(t *testing.T) {
	r := New(Config{
		Binary:    filepath.Join(t.TempDir(), "no-such-ffmpeg"),
		Directory: t.TempDir(),
	}, testLogger())

	if _, err := r.Run(context.Background(), testJob()); err == nil {
		t.Error("expected error when the capture binary does not exist")
	}
}

func TestFFmpeg_Run_waits_for_termination(t *testing.T) {
	// "true" exits immediately, standing in for a capture that terminates.
	r := New(Config{Binary: "true", Directory: t.TempDir()}, testLogger())

	stream, err := r.Run(context.Background(), testJob())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := stream.Wait(); err != nil {
		t.Errorf("Wait: %v", err)
	}
}
