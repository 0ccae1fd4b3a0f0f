// Package assemble stitches generated scene clips into the final video
// with ffmpeg, optionally laying a faded music track underneath.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var sceneNumberRe = regexp.MustCompile(`(?i)scene[_\s]*(\d+)`)

// Clip is one scene video discovered on disk.
type Clip struct {
	Path        string
	SceneNumber int
	Numbered    bool
}

// MuxError carries ffmpeg's combined output alongside the failure so
// callers can inspect codec diagnostics.
type MuxError struct {
	Op     string
	Output string
	Err    error
}

func (e *MuxError) Error() string {
	return fmt.Sprintf("%s failed: %v\noutput: %s", e.Op, e.Err, e.Output)
}

func (e *MuxError) Unwrap() error { return e.Err }

// CheckFFmpeg verifies ffmpeg is on the PATH.
func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return nil
}

// FindClips lists the .mp4 files in dir, optionally filtered by a
// project substring, ordered by the scene number embedded in the
// filename. Files without a scene number sort after numbered ones,
// alphabetically.
func FindClips(dir, project string) ([]Clip, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read clip dir: %w", err)
	}

	var clips []Clip
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".mp4") {
			continue
		}
		if project != "" && !strings.Contains(strings.ToLower(entry.Name()), strings.ToLower(project)) {
			continue
		}

		clip := Clip{Path: filepath.Join(dir, entry.Name())}
		if m := sceneNumberRe.FindStringSubmatch(entry.Name()); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				clip.SceneNumber = n
				clip.Numbered = true
			}
		}
		clips = append(clips, clip)
	}

	sort.SliceStable(clips, func(i, j int) bool {
		a, b := clips[i], clips[j]
		switch {
		case a.Numbered && b.Numbered:
			return a.SceneNumber < b.SceneNumber
		case a.Numbered != b.Numbered:
			return a.Numbered
		default:
			return filepath.Base(a.Path) < filepath.Base(b.Path)
		}
	})

	return clips, nil
}

// Options controls a combine run.
type Options struct {
	Output       string
	Music        string
	FadeDuration int
	ReEncode     bool
	Logger       *slog.Logger
}

// Combine concatenates clips into Output. The default mode stream-copies
// for speed; clips with mismatched timestamps trip ffmpeg's
// "Non-monotonous DTS" check, and that failure triggers one automatic
// retry with a full re-encode. With Music set, the concat result is
// written to a temp file and the track is mixed in as a second pass.
// Temp files are removed on success and on failure.
func Combine(ctx context.Context, clips []Clip, opts Options) error {
	if len(clips) < 2 {
		return fmt.Errorf("need at least two clips to combine, found %d", len(clips))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	listPath, err := writeConcatList(clips, opts.Output)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	concatTarget := opts.Output
	if opts.Music != "" {
		concatTarget = filepath.Join(filepath.Dir(opts.Output), "temp_"+filepath.Base(opts.Output))
		defer os.Remove(concatTarget)
	}

	if err := concat(ctx, listPath, concatTarget, opts.ReEncode, logger); err != nil {
		if !opts.ReEncode && isMonotonousDTS(err) {
			logger.Warn("stream copy failed on timestamp mismatch, retrying with re-encode")
			if err := concat(ctx, listPath, concatTarget, true, logger); err != nil {
				return err
			}
		} else {
			return err
		}
	}

	if opts.Music == "" {
		return nil
	}
	return overlayMusic(ctx, concatTarget, opts.Music, opts.Output, opts.FadeDuration, logger)
}

func writeConcatList(clips []Clip, output string) (string, error) {
	listPath := filepath.Join(filepath.Dir(output), "videos_concat_list.txt")

	var lines []string
	for _, clip := range clips {
		abs, err := filepath.Abs(clip.Path)
		if err != nil {
			return "", fmt.Errorf("resolve clip path: %w", err)
		}
		escaped := strings.ReplaceAll(filepath.ToSlash(abs), "'", `'\''`)
		lines = append(lines, fmt.Sprintf("file '%s'", escaped))
	}

	if err := os.WriteFile(listPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return listPath, nil
}

func concatArgs(listPath, output string, reEncode bool) []string {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
	}
	if reEncode {
		args = append(args,
			"-c:v", "libx264",
			"-preset", "medium",
			"-crf", "23",
			"-c:a", "aac",
		)
	} else {
		args = append(args, "-c", "copy")
	}
	return append(args, "-y", output)
}

func concat(ctx context.Context, listPath, output string, reEncode bool, logger *slog.Logger) error {
	logger.Info("concatenating clips", "output", output, "re_encode", reEncode)

	cmd := exec.CommandContext(ctx, "ffmpeg", concatArgs(listPath, output, reEncode)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &MuxError{Op: "concat", Output: string(out), Err: err}
	}
	return nil
}

func musicArgs(video, music, output string, fadeDuration int) []string {
	return []string{
		"-i", video,
		"-i", music,
		"-filter_complex", fmt.Sprintf("[1:a]afade=t=out:st=0:d=%d[audio]", fadeDuration),
		"-map", "0:v",
		"-map", "[audio]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-y", output,
	}
}

func overlayMusic(ctx context.Context, video, music, output string, fadeDuration int, logger *slog.Logger) error {
	if _, err := os.Stat(music); err != nil {
		return fmt.Errorf("music file: %w", err)
	}

	logger.Info("adding background music", "music", music, "fade", fadeDuration)

	cmd := exec.CommandContext(ctx, "ffmpeg", musicArgs(video, music, output, fadeDuration)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &MuxError{Op: "music overlay", Output: string(out), Err: err}
	}
	return nil
}

func isMonotonousDTS(err error) bool {
	var muxErr *MuxError
	return errors.As(err, &muxErr) && strings.Contains(muxErr.Output, "Non-monotonous DTS")
}
