// Package ffmpeg implements the engine's media-toolchain collaborator on top
// of the ffmpeg and ffprobe binaries.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Toolchain shells out to ffmpeg/ffprobe.
type Toolchain struct {
	ffmpegBin  string
	ffprobeBin string
	logger     *zap.Logger
}

// Option configures a Toolchain.
type Option func(*Toolchain)

// WithBinaries overrides the ffmpeg/ffprobe binary paths.
func WithBinaries(ffmpegBin, ffprobeBin string) Option {
	return func(t *Toolchain) {
		t.ffmpegBin = ffmpegBin
		t.ffprobeBin = ffprobeBin
	}
}

// WithLogger sets the toolchain logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Toolchain) {
		t.logger = logger
	}
}

// New returns a Toolchain using binaries found on PATH unless overridden.
func New(opts ...Option) *Toolchain {
	t := &Toolchain{
		ffmpegBin:  "ffmpeg",
		ffprobeBin: "ffprobe",
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// run executes one command, capturing stderr into the returned error.
func (t *Toolchain) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", fmt.Errorf("command '%s' failed: %w\nstderr: %s", name, err, stderrStr)
		}
		return "", fmt.Errorf("command '%s' failed: %w", name, err)
	}
	return stdout.String(), nil
}

// Probe returns the media duration in seconds via ffprobe.
func (t *Toolchain) Probe(ctx context.Context, path string) (float64, error) {
	out, err := t.run(ctx, t.ffprobeBin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbeDuration(out)
}

// parseProbeDuration extracts format.duration from ffprobe JSON output.
func parseProbeDuration(out string) (float64, error) {
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	if probe.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe output has no duration")
	}
	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ffprobe duration %q: %w", probe.Format.Duration, err)
	}
	return duration, nil
}

// Extract converts the source to a mono 16 kHz PCM WAV at targetPath, the
// format the transcription backend consumes.
func (t *Toolchain) Extract(ctx context.Context, sourcePath, targetPath string) error {
	args := []string{
		"-i", sourcePath,
		"-vn", // No video
		"-ar", "16000", // 16kHz sample rate
		"-ac", "1", // Mono
		"-c:a", "pcm_s16le",
		"-y",
		targetPath,
	}

	t.logger.Info("extracting audio",
		zap.String("source", sourcePath),
		zap.String("target", targetPath))

	if _, err := t.run(ctx, t.ffmpegBin, args...); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	return nil
}
