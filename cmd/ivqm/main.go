// Command ivqm measures the fidelity of a test raw video sequence against
// a reference: PSNR, WS-PSNR, IV-PSNR, SSIM, MS-SSIM, IV-SSIM and
// IV-MS-SSIM, reported per-component, per-frame, and as a sequence
// average.
//
// Usage:
//
//	ivqm measure -c config.ini          Run the comparison described by config.ini
//	ivqm measure -c config.ini --yaml out.yaml    Also dump the sequence averages as YAML to out.yaml
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/immersive-video/ivqm/internal/colorconv"
	"github.com/immersive-video/ivqm/internal/config"
	"github.com/immersive-video/ivqm/internal/driver"
	"github.com/immersive-video/ivqm/internal/ivqmerr"
	"github.com/immersive-video/ivqm/internal/reporter"
	"github.com/immersive-video/ivqm/internal/sequenceio"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ivqm: %v\n", color.RedString("error"))
		fmt.Fprintf(os.Stderr, "ivqm: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ivqm",
		Short: "Immersive video quality measurement engine",
	}
	root.AddCommand(newMeasureCmd())
	return root
}

func newMeasureCmd() *cobra.Command {
	var (
		configPath string
		yamlOut    string
		verbose    int
	)
	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Measure PSNR/SSIM family metrics between a test and reference sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeasure(cmd.Context(), configPath, yamlOut, verbose)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the INI-subset config file (required)")
	cmd.Flags().StringVar(&yamlOut, "yaml", "", "also write sequence averages as YAML to this path")
	cmd.Flags().IntVarP(&verbose, "verbose", "v", -1, "override VerboseLevel from the config (0-3)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func runMeasure(ctx context.Context, configPath, yamlOut string, verboseOverride int) error {
	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	rec, err := config.Parse(f)
	f.Close()
	if err != nil {
		return err
	}
	if verboseOverride >= 0 {
		rec.VerboseLevel = verboseOverride
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	switch {
	case rec.VerboseLevel >= 3:
		log.SetLevel(logrus.DebugLevel)
	case rec.VerboseLevel >= 1:
		log.SetLevel(logrus.WarnLevel)
	default:
		log.SetLevel(logrus.ErrorLevel)
	}

	chroma, err := sequenceio.ParseChroma(rec.ChromaFormat)
	if err != nil {
		return err
	}
	format := sequenceio.Format{
		Width:       rec.Width,
		Height:      rec.Height,
		BitDepth:    rec.BitDepth,
		Chroma:      chroma,
		Interleaved: rec.Interleaved,
	}
	maskFormat := format
	maskFormat.Chroma = sequenceio.Chroma400
	maskFormat.Interleaved = false

	maskPath := ""
	if rec.HasMask {
		maskPath = rec.InputFile[2]
	}
	for _, path := range []string{rec.InputFile[0], rec.InputFile[1]} {
		if err := sequenceio.CheckName(path, format); err != nil {
			switch rec.NameMismatchActn {
			case ivqmerr.ActionAbort:
				return err
			case ivqmerr.ActionWarn:
				log.Warn(err)
			}
		}
	}
	seq, err := sequenceio.Open(
		rec.InputFile[0], rec.InputFile[1], format,
		rec.StartFrame[0], rec.StartFrame[1],
		maskPath, maskFormat, rec.StartFrame[1],
	)
	if err != nil {
		return err
	}
	defer seq.Close()

	rep := reporter.New(os.Stdout, rec.VerboseLevel)

	numComponents := format.NumComponents()
	if rec.ColorSpaceMetric == colorconv.RGB || rec.ColorSpaceInput == colorconv.RGB {
		numComponents = 3
	}

	d, err := driver.New(rec, seq, rep, log, numComponents)
	if err != nil {
		return err
	}

	averages, err := d.Run(ctx)
	if err != nil {
		return err
	}

	rep.Summary(averages)

	if rec.ResultFile != "" {
		if err := reporter.WriteResultFile(rec.ResultFile, averages); err != nil {
			return fmt.Errorf("writing result file: %w", err)
		}
	}
	if yamlOut != "" {
		out, err := os.Create(yamlOut)
		if err != nil {
			return fmt.Errorf("writing yaml: %w", err)
		}
		defer out.Close()
		if err := reporter.WriteYAML(out, averages); err != nil {
			return fmt.Errorf("writing yaml: %w", err)
		}
	}

	return nil
}
