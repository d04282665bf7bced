package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/immersive-video/ivqm/internal/colorconv"
	"github.com/immersive-video/ivqm/internal/ivqmerr"
)

const sample = `
; sample config
[Sequence]
InputFile[0] = test.yuv
InputFile[1] = ref.yuv
PictureSize = 1920x960
BitDepth = 10
ChromaFormat = 4:2:0
StartFrame[0] = 0
StartFrame[1] = 0
NumberOfFrames = 30

[Metrics]
CalcMetric[0] = true
CalcMetric[2] = true
ColorSpaceInput = YCbCr_BT709
SearchRange = 3
CmpWeightsAverage[0] = 4
CmpWeightsAverage[1] = 1
CmpWeightsAverage[2] = 1
UnnoticeableCoef[0] = 0.02
StructSimMode = RegularAveraged
InvalidPelActn = CONCEAL
`

func TestParseSample(t *testing.T) {
	rec, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, "test.yuv", rec.InputFile[0])
	require.Equal(t, "ref.yuv", rec.InputFile[1])
	require.False(t, rec.HasMask)
	require.Equal(t, 1920, rec.Width)
	require.Equal(t, 960, rec.Height)
	require.Equal(t, 10, rec.BitDepth)
	require.Equal(t, 30, rec.NumberOfFrames)
	require.True(t, rec.CalcMetric[MetricPSNR])
	require.True(t, rec.CalcMetric[MetricIVPSNR])
	require.False(t, rec.CalcMetric[MetricSSIM])
	require.Equal(t, colorconv.YCbCrBT709, rec.ColorSpaceInput)
	require.Equal(t, 3, rec.SearchRange)
	require.Equal(t, [4]int{4, 1, 1, 0}, rec.CmpWeightsAverage)
	require.InDelta(t, 0.02, rec.UnnoticeableCoef[0], 1e-9)
	require.Equal(t, ivqmerr.ActionConceal, rec.InvalidPelActn)
}

func TestParseMissingRequiredField(t *testing.T) {
	_, err := Parse(strings.NewReader("BitDepth = 8\n"))
	require.Error(t, err)
}

func TestParseRejectsMalformedLine(t *testing.T) {
	_, err := Parse(strings.NewReader("not a key value line\n"))
	require.Error(t, err)
}

func TestParseMaskInputSetsHasMask(t *testing.T) {
	rec, err := Parse(strings.NewReader(`InputFile[0] = a.yuv
InputFile[1] = b.yuv
InputFile[2] = mask.yuv
PictureSize = 4x4
BitDepth = 8
`))
	require.NoError(t, err)
	require.True(t, rec.HasMask)
	require.Equal(t, "mask.yuv", rec.InputFile[2])
}
