package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/immersive-video/ivqm/internal/colorconv"
	"github.com/immersive-video/ivqm/internal/config"
	"github.com/immersive-video/ivqm/internal/ivpsnr"
	"github.com/immersive-video/ivqm/internal/reporter"
	"github.com/immersive-video/ivqm/internal/sequenceio"
)

func writeRaw(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seq.raw")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newFixture(t *testing.T, testFrame, refFrame []byte) (*sequenceio.Sequence, config.Record) {
	t.Helper()
	format := sequenceio.Format{Width: 8, Height: 8, BitDepth: 8, Chroma: sequenceio.Chroma400}
	testPath := writeRaw(t, testFrame)
	refPath := writeRaw(t, refFrame)

	seq, err := sequenceio.Open(testPath, refPath, format, 0, 0, "", sequenceio.Format{}, 0)
	require.NoError(t, err)

	rec := config.Default()
	rec.InputFile[0], rec.InputFile[1] = testPath, refPath
	rec.Width, rec.Height = 8, 8
	rec.BitDepth = 8
	rec.NumberOfFrames = 1
	rec.NumberOfThreads = 2
	rec.CalcMetric[config.MetricPSNR] = true
	rec.CalcMetric[config.MetricIVPSNR] = true
	return seq, rec
}

func TestRunIdenticalFramesYieldFakeInfinity(t *testing.T) {
	frame := make([]byte, 64)
	for i := range frame {
		frame[i] = byte(100 + i%50)
	}
	seq, rec := newFixture(t, frame, append([]byte{}, frame...))
	defer seq.Close()

	var buf bytes.Buffer
	rep := reporter.New(&buf, 0)
	log := logrus.New()
	log.SetOutput(&buf)

	d, err := New(rec, seq, rep, log, 1)
	require.NoError(t, err)

	averages, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, averages, 2)

	for _, avg := range averages {
		require.Equal(t, 1, avg.NumFrames)
		require.InDelta(t, ivpsnr.FakeInfinity, avg.Picture, 1)
		require.True(t, avg.AnyFake)
	}
}

func TestRunDifferingFramesProduceFiniteValues(t *testing.T) {
	testFrame := make([]byte, 64)
	refFrame := make([]byte, 64)
	for i := range testFrame {
		testFrame[i] = byte(120 + i%40)
		refFrame[i] = byte(80 + i%40)
	}
	seq, rec := newFixture(t, testFrame, refFrame)
	defer seq.Close()

	var buf bytes.Buffer
	rep := reporter.New(&buf, 0)
	log := logrus.New()
	log.SetOutput(&buf)

	d, err := New(rec, seq, rep, log, 1)
	require.NoError(t, err)

	averages, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, averages, 2)

	for _, avg := range averages {
		require.False(t, avg.AnyFake)
		require.Greater(t, avg.Picture, 0.0)
		require.Less(t, avg.Picture, ivpsnr.FakeInfinity)
	}
}

func TestNewRejectsUnsupportedColorSpacePair(t *testing.T) {
	frame := make([]byte, 64)
	seq, rec := newFixture(t, frame, append([]byte{}, frame...))
	defer seq.Close()

	rec.ColorSpaceInput = colorconv.YCbCrBT709
	rec.ColorSpaceMetric = colorconv.YCbCrBT601

	var buf bytes.Buffer
	rep := reporter.New(&buf, 0)
	log := logrus.New()

	_, err := New(rec, seq, rep, log, 1)
	require.Error(t, err)
}
