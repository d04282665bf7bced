// Package driver orchestrates a measurement run: the per-frame loop that
// fetches pictures from sequenceio, validates and preprocesses them,
// dispatches the enabled metrics onto the shared worker pool, and
// collects results into metricstat. Ordering across phases comes from
// fully joining one phase before starting the next.
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/immersive-video/ivqm/internal/colorconv"
	"github.com/immersive-video/ivqm/internal/config"
	"github.com/immersive-video/ivqm/internal/globclrdiff"
	"github.com/immersive-video/ivqm/internal/ivpsnr"
	"github.com/immersive-video/ivqm/internal/ivqmerr"
	"github.com/immersive-video/ivqm/internal/metricstat"
	"github.com/immersive-video/ivqm/internal/pic"
	"github.com/immersive-video/ivqm/internal/reporter"
	"github.com/immersive-video/ivqm/internal/sequenceio"
	"github.com/immersive-video/ivqm/internal/shiftcomp"
	"github.com/immersive-video/ivqm/internal/ssim"
	"github.com/immersive-video/ivqm/internal/structsim"
	"github.com/immersive-video/ivqm/internal/threadpool"
)

// Driver runs the full measurement loop for one configured comparison.
type Driver struct {
	rec           config.Record
	seq           *sequenceio.Sequence
	pool          *threadpool.ThreadPool
	rep           *reporter.Reporter
	log           *logrus.Logger
	numComponents int
	convMatrix    *colorconv.Matrix

	// rentals pools the padded per-frame planes, one pool per plane
	// geometry (luma and subsampled chroma differ), so frame N+1 reuses
	// frame N's buffers instead of reallocating.
	rentals map[[2]int]*pic.Rental

	stats map[config.MetricKind]*metricstat.Stat
}

// kindToStat maps a config.MetricKind to the metricstat.Kind it reports
// under.
var kindToStat = map[config.MetricKind]metricstat.Kind{
	config.MetricPSNR:     metricstat.KindPSNR,
	config.MetricWSPSNR:   metricstat.KindWSPSNR,
	config.MetricIVPSNR:   metricstat.KindIVPSNR,
	config.MetricSSIM:     metricstat.KindSSIM,
	config.MetricMSSSIM:   metricstat.KindMSSSIM,
	config.MetricIVSSIM:   metricstat.KindIVSSIM,
	config.MetricIVMSSSIM: metricstat.KindIVMSSSIM,
}

// New builds a Driver for one run. numComponents is the plane count every
// frame of seq yields (the chroma format determines it).
func New(rec config.Record, seq *sequenceio.Sequence, rep *reporter.Reporter, log *logrus.Logger, numComponents int) (*Driver, error) {
	d := &Driver{
		rec:           rec,
		seq:           seq,
		pool:          threadpool.New(rec.NumberOfThreads, 0),
		rep:           rep,
		log:           log,
		numComponents: numComponents,
		rentals:       make(map[[2]int]*pic.Rental),
		stats:         make(map[config.MetricKind]*metricstat.Stat),
	}
	for kind, enabled := range rec.CalcMetric {
		if !enabled {
			continue
		}
		d.stats[kind] = metricstat.NewStat(kindToStat[kind], numComponents, rec.CmpWeightsAverage)
	}
	if rec.ColorSpaceInput != rec.ColorSpaceMetric {
		if rec.ColorSpaceInput.IsRGB() == rec.ColorSpaceMetric.IsRGB() {
			return nil, fmt.Errorf("%w: driver: unsupported color space pair %v -> %v", ivqmerr.ErrConfig, rec.ColorSpaceInput, rec.ColorSpaceMetric)
		}
		ycbcr := rec.ColorSpaceMetric
		if ycbcr.IsRGB() {
			ycbcr = rec.ColorSpaceInput
		}
		d.convMatrix = colorconv.ComputeMatrix(ycbcr, rec.BitDepth, colorconv.RangeFull)
	}
	return d, nil
}

// margin returns the padding every frame's planes need: enough for the
// shift-compensation search window and for the largest configured SSIM
// block size.
func (d *Driver) margin() int {
	m := d.rec.SearchRange
	half := structsim.RegularWindowSize / 2
	if half > m {
		m = half
	}
	if d.rec.StructSimMode.IsBlock() {
		if d.rec.StructSimWindow/2 > m {
			m = d.rec.StructSimWindow / 2
		}
	}
	return m + 1
}

// frameResult is the per-metric outcome of one frame, gathered by
// dispatchMetrics before being folded into metricstat.
type frameResult struct {
	kind         config.MetricKind
	perComponent [4]float64
	picture      float64
	fake         bool
}

// Run executes the full per-frame loop and returns the finalized sequence
// averages for every enabled metric, in config.MetricKind numeric order.
func (d *Driver) Run(ctx context.Context) ([]metricstat.Average, error) {
	defer d.pool.Destroy()

	d.rep.StartSequence(d.rec.NumberOfFrames)
	margin := d.margin()

	for i := 0; i < d.rec.NumberOfFrames; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		frameStart := time.Now()
		test, ref, mask, err := d.seq.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("driver: frame %d: %w", i, err)
		}

		if err := d.validate(test, i, "test"); err != nil {
			return nil, err
		}
		if err := d.validate(ref, i, "ref"); err != nil {
			return nil, err
		}

		test, err = d.preprocess(test, margin)
		if err != nil {
			return nil, err
		}
		ref, err = d.preprocess(ref, margin)
		if err != nil {
			d.giveback(test)
			return nil, err
		}

		results, err := d.dispatchMetrics(test, ref, mask)
		d.giveback(test)
		d.giveback(ref)
		if err != nil {
			return nil, err
		}

		elapsed := time.Since(frameStart)
		frameValues := make(map[metricstat.Kind]float64, len(results))
		for _, r := range results {
			d.stats[r.kind].RecordFrame(r.perComponent, r.picture, r.fake, elapsed)
			frameValues[kindToStat[r.kind]] = r.picture
		}
		d.rep.FrameDone(i, frameValues)
		d.log.WithFields(logrus.Fields{"frame": i, "elapsed": elapsed}).Debug("frame measured")
	}

	return d.finalize(), nil
}

// validate enforces the tri-modal out-of-range policy
// (CONCEAL/WARN/ABORT) over every component plane of one picture.
func (d *Driver) validate(planes []*pic.Plane, frameIdx int, label string) error {
	for c, p := range planes {
		ok, diag := p.Check(fmt.Sprintf("%s[%d] frame %d", label, c, frameIdx))
		if ok {
			continue
		}
		switch d.rec.InvalidPelActn {
		case ivqmerr.ActionConceal:
			p.Conceal()
			d.log.WithField("diag", diag).Warn("concealed out-of-range pels")
		case ivqmerr.ActionWarn:
			d.log.WithField("diag", diag).Warn("out-of-range pels")
		case ivqmerr.ActionAbort:
			return fmt.Errorf("%w: %s", ivqmerr.ErrRange, diag)
		}
	}
	return nil
}

// preprocess pads each plane to margin, converts color space if
// configured, and extends margins. Padded planes come from the per-layout
// rental pools and must be returned via giveback after the frame's
// metrics complete.
func (d *Driver) preprocess(planes []*pic.Plane, margin int) ([]*pic.Plane, error) {
	padded := make([]*pic.Plane, len(planes))
	for i, src := range planes {
		dst, err := d.borrowPadded(src, margin)
		if err != nil {
			d.giveback(padded[:i])
			return nil, err
		}
		padded[i] = dst
	}
	if d.convMatrix != nil && len(padded) >= 3 {
		toYCbCr := d.rec.ColorSpaceInput.IsRGB()
		if err := colorconv.ConvertPlanes(d.convMatrix, toYCbCr, padded[0], padded[1], padded[2], padded[0], padded[1], padded[2]); err != nil {
			return nil, fmt.Errorf("driver: color conversion: %w", err)
		}
	}
	for _, p := range padded {
		p.Extend()
	}
	return padded, nil
}

func (d *Driver) borrowPadded(src *pic.Plane, margin int) (*pic.Plane, error) {
	key := [2]int{src.Width(), src.Height()}
	r, ok := d.rentals[key]
	if !ok {
		r = pic.NewRental(src.Width(), src.Height(), src.BitDepth(), margin, 2*d.numComponents)
		d.rentals[key] = r
	}
	dst, err := r.Borrow()
	if err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}
	for y := 0; y < src.Height(); y++ {
		for x := 0; x < src.Width(); x++ {
			dst.Set(x, y, src.At(x, y))
		}
	}
	return dst, nil
}

func (d *Driver) giveback(planes []*pic.Plane) {
	for _, p := range planes {
		if p == nil {
			continue
		}
		d.rentals[[2]int{p.Width(), p.Height()}].Giveback(p)
	}
}

// dispatchMetrics runs every enabled metric concurrently, each on its own
// ThPI client of the shared pool, computing the shared shift-compensated
// pictures once and reusing them across IV-PSNR/IV-SSIM/IV-MS-SSIM.
func (d *Driver) dispatchMetrics(test, ref []*pic.Plane, mask *pic.Plane) ([]frameResult, error) {
	needsSCP := d.rec.CalcMetric[config.MetricIVPSNR] || d.rec.CalcMetric[config.MetricIVSSIM] || d.rec.CalcMetric[config.MetricIVMSSSIM]

	var scp shiftcomp.Result
	if needsSCP {
		client := d.pool.RegisterClient(0)
		defer d.pool.UnregisterClient(client)

		u := d.rec.UnnoticeableCoef[:d.numComponents]
		delta := globclrdiff.Compute(client, ref, test, u)

		weights := [4]float64{}
		for c := 0; c < 4; c++ {
			weights[c] = float64(d.rec.CmpWeightsSearch[c])
		}
		var err error
		scp, err = shiftcomp.Generate(client, ref, test, shiftcomp.Options{
			SearchRange: d.rec.SearchRange,
			Delta:       delta,
			Weights:     weights,
		})
		if err != nil {
			return nil, fmt.Errorf("driver: shift compensation: %w", err)
		}
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []frameResult
		firstErr error
	)
	record := func(r frameResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		results = append(results, r)
	}

	run := func(kind config.MetricKind, fn func(client *threadpool.ThPI) (frameResult, error)) {
		if !d.rec.CalcMetric[kind] {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := d.pool.RegisterClient(0)
			defer d.pool.UnregisterClient(client)
			r, err := fn(client)
			record(r, err)
		}()
	}

	run(config.MetricPSNR, func(client *threadpool.ThPI) (frameResult, error) {
		res := ivpsnr.Compute(client, test, ref, ivpsnr.Options{})
		return frameResult{
			kind:         config.MetricPSNR,
			perComponent: res.PSNR,
			picture:      ivpsnr.CmpWeightsAverage(res.PSNR, d.rec.CmpWeightsAverage, d.numComponents),
			fake:         res.AnyFake,
		}, nil
	})

	run(config.MetricWSPSNR, func(client *threadpool.ThPI) (frameResult, error) {
		res := ivpsnr.Compute(client, test, ref, ivpsnr.Options{Spherical: true, LatRangeDeg: d.rec.LatRangeDeg})
		return frameResult{
			kind:         config.MetricWSPSNR,
			perComponent: res.PSNR,
			picture:      ivpsnr.CmpWeightsAverage(res.PSNR, d.rec.CmpWeightsAverage, d.numComponents),
			fake:         res.AnyFake,
		}, nil
	})

	run(config.MetricIVPSNR, func(client *threadpool.ThPI) (frameResult, error) {
		opts := ivpsnr.Options{Mask: mask}
		res := ivpsnr.Direction(client, test, ref, scp.RefSCP, scp.TstSCP, opts)
		return frameResult{
			kind:         config.MetricIVPSNR,
			perComponent: res.PSNR,
			picture:      ivpsnr.CmpWeightsAverage(res.PSNR, d.rec.CmpWeightsAverage, d.numComponents),
			fake:         res.AnyFake,
		}, nil
	})

	run(config.MetricSSIM, func(client *threadpool.ThPI) (frameResult, error) {
		return d.computeSSIM(client, test, ref, config.MetricSSIM, false)
	})

	run(config.MetricMSSSIM, func(client *threadpool.ThPI) (frameResult, error) {
		return d.computeSSIM(client, test, ref, config.MetricMSSSIM, true)
	})

	run(config.MetricIVSSIM, func(client *threadpool.ThPI) (frameResult, error) {
		return d.computeIVSSIM(client, test, ref, scp, config.MetricIVSSIM, false)
	})

	run(config.MetricIVMSSSIM, func(client *threadpool.ThPI) (frameResult, error) {
		return d.computeIVSSIM(client, test, ref, scp, config.MetricIVMSSSIM, true)
	})

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (d *Driver) ssimOptions() ssim.Options {
	return ssim.Options{
		Mode:          d.rec.StructSimMode,
		Stride:        d.rec.StructSimStride,
		Window:        d.rec.StructSimWindow,
		CalcLuminance: true,
	}
}

func (d *Driver) computeSSIM(client *threadpool.ThPI, test, ref []*pic.Plane, kind config.MetricKind, multiScale bool) (frameResult, error) {
	opts := d.ssimOptions()
	var perComponent [4]float64
	var err error
	if multiScale {
		perComponent, err = ssim.ComputeMSSSIM(client, test, ref, opts)
	} else {
		for c := 0; c < d.numComponents; c++ {
			perComponent[c], err = ssim.ComputePicture(client, test[c], ref[c], opts)
			if err != nil {
				break
			}
		}
	}
	if err != nil {
		return frameResult{}, fmt.Errorf("driver: %v: %w", kind, err)
	}
	return frameResult{
		kind:         kind,
		perComponent: perComponent,
		picture:      ssim.CmpWeightsAverage(perComponent, d.rec.CmpWeightsAverage, d.numComponents),
	}, nil
}

func (d *Driver) computeIVSSIM(client *threadpool.ThPI, test, ref []*pic.Plane, scp shiftcomp.Result, kind config.MetricKind, multiScale bool) (frameResult, error) {
	opts := d.ssimOptions()
	perComponent, err := ssim.Direction(client, test, ref, scp, opts, multiScale)
	if err != nil {
		return frameResult{}, fmt.Errorf("driver: %v: %w", kind, err)
	}
	return frameResult{
		kind:         kind,
		perComponent: perComponent,
		picture:      ssim.CmpWeightsAverage(perComponent, d.rec.CmpWeightsAverage, d.numComponents),
	}, nil
}

// finalize computes the sequence average for every enabled metric, in a
// stable order (config.MetricKind's numeric order).
func (d *Driver) finalize() []metricstat.Average {
	order := []config.MetricKind{
		config.MetricPSNR, config.MetricWSPSNR, config.MetricIVPSNR,
		config.MetricSSIM, config.MetricMSSSIM, config.MetricIVSSIM, config.MetricIVMSSSIM,
	}
	averages := make([]metricstat.Average, 0, len(d.stats))
	for _, kind := range order {
		stat, ok := d.stats[kind]
		if !ok {
			continue
		}
		averages = append(averages, stat.Finalize())
	}
	return averages
}
