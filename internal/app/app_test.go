package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/getcharzp/seedmask"
	"github.com/getcharzp/seedmask/detect"
	"github.com/getcharzp/seedmask/internal/metrics"
	"github.com/getcharzp/seedmask/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeDetector struct {
	boxes []detect.Box
	err   error
	calls int
}

func (f *fakeDetector) Detect(_ context.Context, img image.Image, _ string, threshold float32) (*detect.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := &detect.Result{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	for _, b := range f.boxes {
		if b.Score >= threshold {
			res.Boxes = append(res.Boxes, b)
		}
	}
	return res, nil
}

func (f *fakeDetector) Close() error { return nil }

// writeInput 白底输入图, rects 区域为黑色
func writeInput(t *testing.T, w, h int, rects ...image.Rectangle) string {
	t.Helper()
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for i := range gray.Pix {
		gray.Pix[i] = 255
	}
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				gray.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	path := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, seedmask.SaveImage(path, gray))
	return path
}

func newRunner(det detect.Detector) (*Runner, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Runner{
		Detector: det,
		Labeler:  segment.PixelLabeler{},
		Log:      zap.New(core),
	}, logs
}

func baseOptions(in, out string) Options {
	return Options{
		Infile:            in,
		Outfile:           out,
		Threshold:         0.5,
		Prompt:            "black square",
		BinarizeThreshold: segment.DefaultThreshold,
	}
}

func TestRun_Dots(t *testing.T) {
	in := writeInput(t, 40, 30)
	out := filepath.Join(t.TempDir(), "dots.png")
	det := &fakeDetector{boxes: []detect.Box{{X1: 0, Y1: 0, X2: 10, Y2: 10, Score: 0.9}}}
	r, _ := newRunner(det)

	outcome, err := r.Run(context.Background(), baseOptions(in, out))
	require.NoError(t, err)
	assert.Equal(t, OutcomeWritten, outcome)

	img, err := seedmask.LoadImage(out)
	require.NoError(t, err)
	gray := segment.ToGray(img)
	assert.Equal(t, image.Rect(0, 0, 40, 30), gray.Bounds())
	// 圆心 (5,5), 半径 5 的实心圆, 其余全黑
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			dx, dy := x-5, y-5
			want := uint8(0)
			if dx*dx+dy*dy <= 25 {
				want = 255
			}
			require.Equal(t, want, gray.GrayAt(x, y).Y, "pixel (%d, %d)", x, y)
		}
	}
}

func TestRun_DotsIdempotent(t *testing.T) {
	in := writeInput(t, 64, 48)
	dir := t.TempDir()
	det := &fakeDetector{boxes: []detect.Box{
		{X1: 3, Y1: 4, X2: 21, Y2: 17, Score: 0.8},
		{X1: 30, Y1: 10, X2: 60, Y2: 40, Score: 0.7},
	}}
	r, _ := newRunner(det)

	first, second := filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")
	_, err := r.Run(context.Background(), baseOptions(in, first))
	require.NoError(t, err)
	_, err = r.Run(context.Background(), baseOptions(in, second))
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRun_NoDetections(t *testing.T) {
	in := writeInput(t, 20, 20)
	out := filepath.Join(t.TempDir(), "out.png")
	det := &fakeDetector{boxes: []detect.Box{{X1: 0, Y1: 0, X2: 5, Y2: 5, Score: 0.1}}}
	r, logs := newRunner(det)

	outcome, err := r.Run(context.Background(), baseOptions(in, out))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoDetections, outcome)
	assert.NoFileExists(t, out)
	assert.Equal(t, 1, logs.FilterMessage("No objects detected, nothing written").Len())
}

func TestRun_FloodfillKeepsSeededBlob(t *testing.T) {
	blobA := image.Rect(4, 4, 16, 16)
	blobB := image.Rect(30, 6, 44, 26)
	in := writeInput(t, 48, 32, blobA, blobB)
	out := filepath.Join(t.TempDir(), "mask.png")
	det := &fakeDetector{boxes: []detect.Box{{X1: 4, Y1: 4, X2: 16, Y2: 16, Score: 0.9}}}
	r, logs := newRunner(det)
	m := metrics.New()
	r.Metrics = m

	opts := baseOptions(in, out)
	opts.Floodfill = true
	outcome, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWritten, outcome)

	img, err := seedmask.LoadImage(out)
	require.NoError(t, err)
	mask := segment.ToGray(img)
	for y := 0; y < 32; y++ {
		for x := 0; x < 48; x++ {
			want := uint8(0)
			if (image.Point{X: x, Y: y}).In(blobA) {
				want = 255
			}
			require.Equal(t, want, mask.GrayAt(x, y).Y, "pixel (%d, %d)", x, y)
		}
	}
	assert.Equal(t, 1, logs.FilterMessage("Kept shapes").Len())

	prom := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, m.WriteTextfile(prom))
	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "seedmask_shapes 2")
	assert.Contains(t, string(data), "seedmask_kept_shapes 1")
	assert.Contains(t, string(data), `seedmask_outcome{outcome="written"} 1`)
}

func TestRun_FloodfillTransparentBackground(t *testing.T) {
	blobA := image.Rect(4, 4, 16, 16)
	blobB := image.Rect(30, 6, 44, 26)
	src := image.NewNRGBA(image.Rect(0, 0, 48, 32))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 255, 255, 255, 0
	}
	for _, r := range []image.Rectangle{blobA, blobB} {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				src.SetNRGBA(x, y, color.NRGBA{A: 255})
			}
		}
	}
	in := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, seedmask.SaveImage(in, src))

	out := filepath.Join(t.TempDir(), "mask.png")
	det := &fakeDetector{boxes: []detect.Box{{X1: 4, Y1: 4, X2: 16, Y2: 16, Score: 0.9}}}
	r, _ := newRunner(det)
	opts := baseOptions(in, out)
	opts.Floodfill = true
	outcome, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWritten, outcome)

	img, err := seedmask.LoadImage(out)
	require.NoError(t, err)
	mask := segment.ToGray(img)
	white := 0
	for _, v := range mask.Pix {
		if v == 255 {
			white++
		}
	}
	assert.Equal(t, blobA.Dx()*blobA.Dy(), white)
	assert.Equal(t, uint8(0), mask.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(35, 10).Y)
	assert.Equal(t, uint8(255), mask.GrayAt(10, 10).Y)
}

func TestRun_FloodfillNoShapes(t *testing.T) {
	in := writeInput(t, 40, 40, image.Rect(2, 2, 8, 8))
	out := filepath.Join(t.TempDir(), "mask.png")
	det := &fakeDetector{boxes: []detect.Box{{X1: 20, Y1: 20, X2: 30, Y2: 30, Score: 0.9}}}
	r, logs := newRunner(det)

	opts := baseOptions(in, out)
	opts.Floodfill = true
	outcome, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoShapes, outcome)
	assert.NoFileExists(t, out)
	warns := logs.FilterLevelExact(zapcore.WarnLevel)
	assert.Equal(t, 1, warns.Len())
}

func TestRun_Annotate(t *testing.T) {
	in := writeInput(t, 32, 32)
	dir := t.TempDir()
	det := &fakeDetector{boxes: []detect.Box{{X1: 4, Y1: 4, X2: 20, Y2: 20, Score: 0.9}}}
	r, _ := newRunner(det)

	opts := baseOptions(in, filepath.Join(dir, "out.png"))
	opts.Annotate = filepath.Join(dir, "boxes.png")
	_, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.FileExists(t, opts.Annotate)
	assert.FileExists(t, opts.Outfile)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()

	det := &fakeDetector{}
	r, _ := newRunner(det)
	_, err := r.Run(context.Background(), baseOptions(filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.png")))
	assert.ErrorIs(t, err, ErrLoadImage)
	assert.Equal(t, 0, det.calls)

	boom := errors.New("session run failed")
	r, _ = newRunner(&fakeDetector{err: boom})
	_, err = r.Run(context.Background(), baseOptions(writeInput(t, 8, 8), filepath.Join(dir, "out.png")))
	assert.ErrorIs(t, err, boom)
	assert.NoFileExists(t, filepath.Join(dir, "out.png"))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "written", OutcomeWritten.String())
	assert.Equal(t, "no_detections", OutcomeNoDetections.String())
	assert.Equal(t, "no_shapes", OutcomeNoShapes.String())
}

func TestRun_NoticesIgnoreLogLevel(t *testing.T) {
	var out bytes.Buffer
	core, _ := observer.New(zapcore.ErrorLevel)
	r := &Runner{
		Detector: &fakeDetector{},
		Labeler:  segment.PixelLabeler{},
		Log:      zap.New(core),
		Out:      &out,
	}
	outcome, err := r.Run(context.Background(), baseOptions(writeInput(t, 8, 8), filepath.Join(t.TempDir(), "out.png")))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoDetections, outcome)
	assert.Contains(t, out.String(), "No objects detected")

	out.Reset()
	r.Detector = &fakeDetector{boxes: []detect.Box{{X1: 0, Y1: 0, X2: 4, Y2: 4, Score: 0.9}}}
	opts := baseOptions(writeInput(t, 8, 8), filepath.Join(t.TempDir(), "out.png"))
	opts.Floodfill = true
	outcome, err = r.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoShapes, outcome)
	assert.Contains(t, out.String(), "lies on a shape")
}
