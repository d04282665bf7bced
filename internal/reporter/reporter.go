// Package reporter turns finalized metricstat.Average values into the
// plain-text ResultFile form, a colorized terminal summary, a per-frame
// progress bar, and an optional machine-readable YAML dump.
package reporter

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"

	"github.com/immersive-video/ivqm/internal/metricstat"
)

// Reporter accumulates finalized metric averages and writes them out in
// both the plain-text ResultFile form and an optional YAML dump.
type Reporter struct {
	out     io.Writer
	verbose int
	bar     *progressbar.ProgressBar
}

// New creates a Reporter writing to out at the given verbosity
// (0 silent .. 3 per-metric).
func New(out io.Writer, verbose int) *Reporter {
	return &Reporter{out: out, verbose: verbose}
}

// StartSequence begins a progress bar sized to numFrames, shown only when
// verbose >= 1 and out is a terminal-like stream (always created here;
// progressbar itself degrades gracefully on a non-tty writer).
func (r *Reporter) StartSequence(numFrames int) {
	if r.verbose < 1 {
		return
	}
	r.bar = progressbar.NewOptions(numFrames,
		progressbar.OptionSetDescription("measuring"),
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionShowCount(),
	)
}

// FrameDone advances the progress bar by one frame and, at VerboseLevel
// >= 2, prints a per-frame line.
func (r *Reporter) FrameDone(frameIdx int, values map[metricstat.Kind]float64) {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
	if r.verbose < 2 {
		return
	}
	fmt.Fprintf(r.out, "frame %5d:", frameIdx)
	for kind, v := range values {
		fmt.Fprintf(r.out, " %s=%.4f", kind, v)
	}
	fmt.Fprintln(r.out)
}

// Summary writes the final per-metric sequence averages, one line per
// enabled metric, picture-wise then component-wise.
func (r *Reporter) Summary(averages []metricstat.Average) {
	bold := color.New(color.Bold)
	for _, avg := range averages {
		bold.Fprintf(r.out, "%-10s", avg.Kind.String())
		fmt.Fprintf(r.out, " picture=%.6f", avg.Picture)
		for c := 0; c < 4; c++ {
			if c == 3 && avg.PerComponent[c] == 0 {
				continue // 4th (alpha/mask) component is rarely present
			}
			fmt.Fprintf(r.out, " c%d=%.6f", c, avg.PerComponent[c])
		}
		if avg.AnyFake {
			color.New(color.FgYellow).Fprint(r.out, " (fake-infinity present)")
		}
		fmt.Fprintf(r.out, " frames=%d avgTime=%s\n", avg.NumFrames, avg.AverageElapsed)
	}
}

// yamlAverage is the wire shape for the machine-readable YAML dump.
type yamlAverage struct {
	Metric       string     `yaml:"metric"`
	Picture      float64    `yaml:"picture"`
	PerComponent [4]float64 `yaml:"perComponent"`
	AnyFake      bool       `yaml:"anyFake"`
	NumFrames    int        `yaml:"numFrames"`
}

// WriteYAML writes the machine-readable form of averages to w.
func WriteYAML(w io.Writer, averages []metricstat.Average) error {
	out := make([]yamlAverage, len(averages))
	for i, avg := range averages {
		out[i] = yamlAverage{
			Metric:       avg.Kind.String(),
			Picture:      avg.Picture,
			PerComponent: avg.PerComponent,
			AnyFake:      avg.AnyFake,
			NumFrames:    avg.NumFrames,
		}
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(out)
}

// WriteResultFile writes the plain-text summary to path, creating or
// truncating it.
func WriteResultFile(path string, averages []metricstat.Average) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("reporter: creating result file: %w", err)
	}
	defer f.Close()
	r := New(f, 0)
	r.Summary(averages)
	return nil
}
