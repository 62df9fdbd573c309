package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/clipforge/api/pkg/response"
)

// stderrTailLines is how much of ffmpeg's stderr is kept on failure.
const stderrTailLines = 20

// commandRunner abstracts process execution so the encoder is testable
// without an ffmpeg binary.
type commandRunner interface {
	Run(ctx context.Context, name string, args []string) (stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// Encoder invokes ffmpeg. Availability is probed once and cached; a
// missing binary fails every job with FFMPEG_NOT_AVAILABLE without
// spawning a process.
type Encoder struct {
	binary string
	runner commandRunner

	probeOnce sync.Once
	available bool
	version   string
}

// NewEncoder returns an encoder for the ffmpeg binary on PATH.
func NewEncoder() *Encoder {
	return &Encoder{binary: "ffmpeg", runner: execRunner{}}
}

func (e *Encoder) probe() {
	e.probeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		out, err := exec.CommandContext(ctx, e.binary, "-version").Output()
		if err != nil {
			return
		}
		e.available = true
		if i := strings.IndexByte(string(out), '\n'); i > 0 {
			e.version = strings.TrimSpace(string(out[:i]))
		} else {
			e.version = strings.TrimSpace(string(out))
		}
	})
}

// Available reports whether the ffmpeg binary responded to -version.
func (e *Encoder) Available() bool {
	e.probe()
	return e.available
}

// Version returns the first line of ffmpeg -version, or "".
func (e *Encoder) Version() string {
	e.probe()
	return e.version
}

// Encode renders the spec to outputPath in a single ffmpeg pass.
func (e *Encoder) Encode(ctx context.Context, spec *ClipSpec, outputPath string) error {
	if !e.Available() {
		return Errf(response.CodeFFmpegNotAvailable, "ffmpeg is not installed or not on PATH")
	}

	args := BuildArgs(spec, outputPath)
	stderr, err := e.runner.Run(ctx, e.binary, args)
	if err != nil {
		if ctx.Err() != nil {
			return Wrap(response.CodeServerError, ctx.Err(), "encode canceled")
		}
		return Wrap(response.CodeFFmpegError, err, "ffmpeg failed: %s", tail(stderr, stderrTailLines))
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		return Errf(response.CodeFFmpegError, "ffmpeg produced no output: %s", tail(stderr, stderrTailLines))
	}
	return nil
}

// BuildArgs produces the complete single-pass ffmpeg argument list for
// a clip spec: one looped image input per source, a filter_complex that
// scales, pads, stacks and concatenates everything, and the audio mix
// chain when present. Pure, so tests can assert on the exact plan.
func BuildArgs(spec *ClipSpec, outputPath string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	// Image inputs, in clip order. Each is a still looped for its
	// clip's duration.
	for _, clip := range spec.Clips {
		for _, src := range clip.Sources {
			args = append(args,
				"-loop", "1",
				"-t", formatSeconds(clip.Duration),
				"-i", src,
			)
		}
	}

	audioInput := -1
	if spec.Audio != nil {
		if spec.Audio.Loop {
			args = append(args, "-stream_loop", "-1")
		}
		args = append(args, "-i", spec.Audio.SourcePath)
		n := 0
		for _, clip := range spec.Clips {
			n += len(clip.Sources)
		}
		audioInput = n
	}

	args = append(args, "-filter_complex", buildFilterGraph(spec, audioInput))
	args = append(args, "-map", "[vout]")
	if spec.Audio != nil {
		args = append(args, "-map", "[aout]", "-c:a", "aac")
	}
	args = append(args,
		"-c:v", spec.Codec,
		"-pix_fmt", "yuv420p",
		"-preset", spec.Preset,
		"-crf", strconv.Itoa(spec.CRF),
		"-t", formatSeconds(spec.TotalDuration),
		outputPath,
	)
	return args
}

func buildFilterGraph(spec *ClipSpec, audioInput int) string {
	var b strings.Builder
	input := 0

	for i, clip := range spec.Clips {
		if clip.Split {
			half := spec.Height / 2
			fmt.Fprintf(&b, "[%d:v]%s[t%d];", input, scalePad(spec.Width, half), i)
			fmt.Fprintf(&b, "[%d:v]%s[b%d];", input+1, scalePad(spec.Width, half), i)
			fmt.Fprintf(&b, "[t%d][b%d]vstack=inputs=2", i, i)
			input += 2
		} else {
			fmt.Fprintf(&b, "[%d:v]%s", input, scalePad(spec.Width, spec.Height))
			input++
		}
		// Overlay applies after scaling (and stacking, for a split clip).
		if clip.OverlayText != "" {
			fmt.Fprintf(&b, ",%s", drawText(clip.OverlayText))
		}
		fmt.Fprintf(&b, ",fps=%d,setsar=1[v%d];", spec.FPS, i)
	}

	for i := range spec.Clips {
		fmt.Fprintf(&b, "[v%d]", i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=1:a=0[vout]", len(spec.Clips))

	if spec.Audio != nil {
		a := spec.Audio
		fmt.Fprintf(&b, ";[%d:a]atrim=0:%s,asetpts=PTS-STARTPTS",
			audioInput, formatSeconds(a.TargetDuration))
		if a.Volume != 1.0 {
			fmt.Fprintf(&b, ",volume=%s", formatSeconds(a.Volume))
		}
		if a.FadeIn > 0 {
			fmt.Fprintf(&b, ",afade=t=in:st=0:d=%s", formatSeconds(a.FadeIn))
		}
		if a.FadeOut > 0 {
			fmt.Fprintf(&b, ",afade=t=out:st=%s:d=%s",
				formatSeconds(a.TargetDuration-a.FadeOut), formatSeconds(a.FadeOut))
		}
		b.WriteString("[aout]")
	}

	return b.String()
}

func scalePad(w, h int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		w, h, w, h)
}

// drawText centers white 60px text near the bottom with a black border,
// escaping the characters ffmpeg's filter parser treats specially.
func drawText(text string) string {
	esc := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
	).Replace(text)
	return fmt.Sprintf(
		"drawtext=text='%s':fontsize=60:fontcolor=white:x=(w-text_w)/2:y=h-100:borderw=3:bordercolor=black",
		esc)
}

// formatSeconds renders a float without trailing zeros ("3", "2.5").
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
