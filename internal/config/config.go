// Package config reads the INI-style measurement configuration and hands
// the core a validated Record: a bufio.Scanner over key=value lines with
// optional [Section] headers, no external dependency.
package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/immersive-video/ivqm/internal/colorconv"
	"github.com/immersive-video/ivqm/internal/ivqmerr"
	"github.com/immersive-video/ivqm/internal/structsim"
)

// MetricKind selects which metric CalcMetric[m] enables.
type MetricKind int

const (
	MetricPSNR MetricKind = iota
	MetricWSPSNR
	MetricIVPSNR
	MetricSSIM
	MetricMSSSIM
	MetricIVSSIM
	MetricIVMSSSIM
)

// Record is the validated configuration the driver consumes.
type Record struct {
	InputFile    [3]string // test, reference, optional mask
	HasMask      bool
	Interleaved  bool
	ChromaFormat string

	Width, Height int
	BitDepth      int

	StartFrame     [2]int
	NumberOfFrames int

	CalcMetric map[MetricKind]bool

	ColorSpaceInput  colorconv.Space
	ColorSpaceMetric colorconv.Space

	SearchRange       int
	CmpWeightsSearch  [4]int
	CmpWeightsAverage [4]int
	UnnoticeableCoef  [4]float64

	StructSimMode   structsim.Mode
	StructSimStride int
	StructSimWindow int

	IsEquirectangular bool
	LonRangeDeg       float64
	LatRangeDeg       float64

	InvalidPelActn  ivqmerr.Action
	NameMismatchActn ivqmerr.Action

	NumberOfThreads int
	VerboseLevel    int

	ResultFile string
}

// Default returns a Record with the documented defaults: SearchRange=2,
// LatRangeDeg=180, StructSimStride=4, StructSimWindow=8,
// NumberOfThreads=0 (hardware default).
func Default() Record {
	r := Record{
		CalcMetric:        make(map[MetricKind]bool),
		ChromaFormat:      "4:2:0",
		ColorSpaceInput:   colorconv.YCbCrBT709,
		ColorSpaceMetric:  colorconv.YCbCrBT709,
		SearchRange:       2,
		CmpWeightsSearch:  [4]int{1, 1, 1, 0},
		CmpWeightsAverage: [4]int{1, 1, 1, 0},
		UnnoticeableCoef:  [4]float64{0.01, 0.01, 0.01, 0.01},
		StructSimMode:     structsim.RegularGaussianFlt,
		StructSimStride:   4,
		StructSimWindow:   8,
		LatRangeDeg:       180,
		LonRangeDeg:       360,
		InvalidPelActn:    ivqmerr.ActionConceal,
		NameMismatchActn:  ivqmerr.ActionWarn,
		VerboseLevel:      1,
	}
	return r
}

// Parse reads an INI-subset config file: blank lines and lines starting
// with ';' or '#' are comments, every other non-blank line is
// "Key = Value" or "Key[idx] = Value" for the indexed fields
// (InputFile[0..2], StartFrame[0..1], CmpWeightsSearch[0..3],
// CmpWeightsAverage[0..3], UnnoticeableCoef[0..3]). Section headers
// ("[Section]") are accepted and ignored.
func Parse(r io.Reader) (Record, error) {
	rec := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return rec, fmt.Errorf("%w: config: line %d: missing '='", ivqmerr.ErrConfig, lineNum)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if err := applyField(&rec, key, value); err != nil {
			return rec, fmt.Errorf("%w: config: line %d: %v", ivqmerr.ErrConfig, lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return rec, fmt.Errorf("%w: config: %v", ivqmerr.ErrIO, err)
	}
	return rec, validate(rec)
}

func applyField(rec *Record, key, value string) error {
	name, idx, indexed := splitIndex(key)
	switch strings.ToLower(name) {
	case "inputfile":
		i := 0
		if indexed {
			i = idx
		}
		if i < 0 || i > 2 {
			return fmt.Errorf("InputFile index out of range: %d", i)
		}
		rec.InputFile[i] = value
		if i == 2 {
			rec.HasMask = true
		}
	case "fileformat":
		rec.Interleaved = strings.EqualFold(value, "interleaved")
	case "chromaformat":
		rec.ChromaFormat = value
	case "picturesize":
		w, h, err := parseSize(value)
		if err != nil {
			return err
		}
		rec.Width, rec.Height = w, h
	case "bitdepth":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		rec.BitDepth = v
	case "startframe":
		i := 0
		if indexed {
			i = idx
		}
		if i < 0 || i > 1 {
			return fmt.Errorf("StartFrame index out of range: %d", i)
		}
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		rec.StartFrame[i] = v
	case "numberofframes":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		rec.NumberOfFrames = v
	case "calcmetric":
		kind, err := parseMetricKind(key)
		if err != nil {
			return err
		}
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		rec.CalcMetric[kind] = v
	case "colorspaceinput":
		sp, err := parseColorSpace(value)
		if err != nil {
			return err
		}
		rec.ColorSpaceInput = sp
	case "colorspacemetric":
		sp, err := parseColorSpace(value)
		if err != nil {
			return err
		}
		rec.ColorSpaceMetric = sp
	case "searchrange":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		rec.SearchRange = v
	case "cmpweightssearch":
		if !indexed || idx < 0 || idx > 3 {
			return fmt.Errorf("CmpWeightsSearch requires an index 0..3")
		}
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		rec.CmpWeightsSearch[idx] = v
	case "cmpweightsaverage":
		if !indexed || idx < 0 || idx > 3 {
			return fmt.Errorf("CmpWeightsAverage requires an index 0..3")
		}
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		rec.CmpWeightsAverage[idx] = v
	case "unnoticeablecoef":
		if !indexed || idx < 0 || idx > 3 {
			return fmt.Errorf("UnnoticeableCoef requires an index 0..3")
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		rec.UnnoticeableCoef[idx] = v
	case "structsimmode":
		m, err := parseStructSimMode(value)
		if err != nil {
			return err
		}
		rec.StructSimMode = m
	case "structsimstride":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		rec.StructSimStride = v
	case "structsimwindow":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		rec.StructSimWindow = v
	case "isequirectangular":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		rec.IsEquirectangular = v
	case "lonrangedeg":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		rec.LonRangeDeg = v
	case "latrangedeg":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		rec.LatRangeDeg = v
	case "invalidpelactn":
		a, err := ivqmerr.ParseAction(value)
		if err != nil {
			return err
		}
		rec.InvalidPelActn = a
	case "namemismatchactn":
		a, err := ivqmerr.ParseAction(value)
		if err != nil {
			return err
		}
		rec.NameMismatchActn = a
	case "numberofthreads":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		rec.NumberOfThreads = v
	case "verboselevel":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		rec.VerboseLevel = v
	case "resultfile":
		rec.ResultFile = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// splitIndex splits "Key[N]" into ("Key", N, true), or returns
// (key, 0, false) for a bare key.
func splitIndex(key string) (name string, idx int, indexed bool) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, 0, false
	}
	name = key[:open]
	n, err := strconv.Atoi(key[open+1 : len(key)-1])
	if err != nil {
		return key, 0, false
	}
	return name, n, true
}

func parseMetricKind(key string) (MetricKind, error) {
	_, idx, indexed := splitIndex(key)
	if !indexed {
		return 0, fmt.Errorf("CalcMetric requires an index, e.g. CalcMetric[0]")
	}
	kinds := []MetricKind{MetricPSNR, MetricWSPSNR, MetricIVPSNR, MetricSSIM, MetricMSSSIM, MetricIVSSIM, MetricIVMSSSIM}
	if idx < 0 || idx >= len(kinds) {
		return 0, fmt.Errorf("CalcMetric index out of range: %d", idx)
	}
	return kinds[idx], nil
}

func parseSize(value string) (int, int, error) {
	w, h, ok := strings.Cut(value, "x")
	if !ok {
		w, h, ok = strings.Cut(value, ",")
	}
	if !ok {
		return 0, 0, fmt.Errorf("PictureSize must be WxH or W,H, got %q", value)
	}
	wi, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, err
	}
	hi, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, err
	}
	return wi, hi, nil
}

func parseColorSpace(value string) (colorconv.Space, error) {
	switch strings.ToUpper(value) {
	case "RGB":
		return colorconv.RGB, nil
	case "YCBCR":
		return colorconv.YCbCr, nil
	case "YCBCR_BT601":
		return colorconv.YCbCrBT601, nil
	case "YCBCR_SMPTE170M":
		return colorconv.YCbCrSMPTE170M, nil
	case "YCBCR_BT709":
		return colorconv.YCbCrBT709, nil
	case "YCBCR_SMPTE240M":
		return colorconv.YCbCrSMPTE240M, nil
	case "YCBCR_BT2020":
		return colorconv.YCbCrBT2020, nil
	default:
		return 0, fmt.Errorf("unknown ColorSpace %q", value)
	}
}

func parseStructSimMode(value string) (structsim.Mode, error) {
	switch strings.ToLower(value) {
	case "regulargaussianflt":
		return structsim.RegularGaussianFlt, nil
	case "regulargaussianint":
		return structsim.RegularGaussianInt, nil
	case "regularaveraged":
		return structsim.RegularAveraged, nil
	case "blockgaussianint":
		return structsim.BlockGaussianInt, nil
	case "blockaveraged":
		return structsim.BlockAveraged, nil
	default:
		return 0, fmt.Errorf("unknown StructSimMode %q", value)
	}
}

func validate(rec Record) error {
	if rec.InputFile[0] == "" || rec.InputFile[1] == "" {
		return fmt.Errorf("%w: config: InputFile[0] and InputFile[1] are required", ivqmerr.ErrConfig)
	}
	if rec.Width <= 0 || rec.Height <= 0 {
		return fmt.Errorf("%w: config: PictureSize is required", ivqmerr.ErrConfig)
	}
	if rec.BitDepth < 6 || rec.BitDepth > 16 {
		return fmt.Errorf("%w: config: BitDepth must be in [6, 16], got %d", ivqmerr.ErrConfig, rec.BitDepth)
	}
	return nil
}
