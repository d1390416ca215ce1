// Package media drives the transcoding engine (ffmpeg) for audio
// extraction, clip cutting, and subtitle burn-in.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Static errors for media operations.
var (
	// ErrInvalidClipRange is returned when a clip's end does not come after its start.
	ErrInvalidClipRange = errors.New("media: clip end must be after start")
	// ErrSameOutputPath is returned when a burn-in would overwrite its input.
	ErrSameOutputPath = errors.New("media: output path must differ from input path")
	// ErrFFprobeExecution is returned when the ffprobe command fails.
	ErrFFprobeExecution = errors.New("media: ffprobe execution failed")
)

// verticalFilter letterboxes any aspect ratio into a 1080x1920 frame.
const verticalFilter = "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2"

// captionStyle is the force_style applied when burning subtitles.
const captionStyle = "PlayResY=1920," +
	"Fontname=Arial," +
	"Fontsize=40," +
	"PrimaryColour=&HFFFFFF&," +
	"OutlineColour=&H000000&," +
	"Outline=3," +
	"Shadow=0," +
	"Alignment=2," +
	"MarginV=120"

// Engine defines the transcoding operations the pipeline needs.
type Engine interface {
	// ExtractAudio writes the video's audio track as 16 kHz mono WAV.
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error

	// CutClip re-encodes the [start, end] span of the video into a
	// 1080x1920 vertical clip.
	CutClip(ctx context.Context, videoPath string, start, end float64, outPath string) error

	// BurnCaptions composites the subtitle track onto the video stream,
	// passing audio through unmodified. outPath must differ from videoPath.
	BurnCaptions(ctx context.Context, videoPath, subtitlePath, outPath string) error

	// ProbeDuration returns the media duration in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// FFmpeg implements Engine using the ffmpeg and ffprobe CLIs.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// Compile-time check that FFmpeg implements Engine.
var _ Engine = (*FFmpeg)(nil)

// NewFFmpeg creates an FFmpeg engine. Empty paths default to "ffmpeg" and
// "ffprobe" resolved via PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// ExtractAudio writes the audio track as 16 kHz mono WAV, the input format
// the speech-to-text engine expects.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		audioPath,
	}
	return f.runFFmpeg(ctx, args)
}

// CutClip cuts and re-encodes one clip into the vertical 1080x1920 frame.
func (f *FFmpeg) CutClip(ctx context.Context, videoPath string, start, end float64, outPath string) error {
	if end <= start {
		return fmt.Errorf("%w: start=%.2f end=%.2f", ErrInvalidClipRange, start, end)
	}

	args := []string{
		"-y",
		"-i", videoPath,
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-vf", verticalFilter,
		"-c:a", "aac",
		"-c:v", "libx264",
		"-preset", "fast",
		outPath,
	}
	return f.runFFmpeg(ctx, args)
}

// BurnCaptions burns the subtitle track into the video's pixel data. The
// video stream is re-encoded; the audio stream is copied. Burning in place
// fails before the engine is invoked.
func (f *FFmpeg) BurnCaptions(ctx context.Context, videoPath, subtitlePath, outPath string) error {
	if samePath(videoPath, outPath) {
		return fmt.Errorf("%w: %s", ErrSameOutputPath, outPath)
	}

	filter := fmt.Sprintf("subtitles=%s:force_style='%s'", escapeFilterPath(subtitlePath), captionStyle)
	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", filter,
		"-c:a", "copy",
		outPath,
	}
	return f.runFFmpeg(ctx, args)
}

// ProbeDuration returns the duration in seconds reported by ffprobe.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (f *FFmpeg) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// samePath reports whether two paths resolve to the same location.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// escapeFilterPath escapes characters that are special inside an ffmpeg
// filter argument.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
