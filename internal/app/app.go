// Package app 串联一次 seedmask 运行: 读图, 检测, 按模式渲染掩码并写出.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"time"

	"github.com/getcharzp/seedmask"
	"github.com/getcharzp/seedmask/detect"
	"github.com/getcharzp/seedmask/internal/metrics"
	"github.com/getcharzp/seedmask/segment"
	"go.uber.org/zap"
)

// ErrLoadImage 输入图片无法读取或解码
var ErrLoadImage = errors.New("无法读取输入图片")

// Outcome 正常结束时的结果, 三种结果的退出码都是 0
type Outcome int

const (
	OutcomeWritten      Outcome = iota // 已写出掩码
	OutcomeNoDetections                // 没有检测框, 不写文件
	OutcomeNoShapes                    // 种子没有命中任何形状, 不写文件
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWritten:
		return "written"
	case OutcomeNoDetections:
		return "no_detections"
	case OutcomeNoShapes:
		return "no_shapes"
	default:
		return "unknown"
	}
}

// Options 单次运行的参数
type Options struct {
	Infile    string
	Outfile   string
	Threshold float32 // 检测置信度阈值, 已校验在 [0, 1]
	Prompt    string
	Floodfill bool
	Annotate  string // 非空时额外写出带检测框的调试图

	BinarizeThreshold uint8 // 区域生长模式的反向二值化阈值
}

// Runner 持有一次运行需要的组件
type Runner struct {
	Detector  detect.Detector
	Labeler   segment.Labeler // 仅区域生长模式需要
	Log       *zap.Logger
	Metrics   *metrics.Run         // 可为 nil
	DotRadius int                  // <= 0 时使用 seedmask.DefaultDotRadius
	Font      *seedmask.TextDrawer // 可为 nil, 调试图只画框
	Out       io.Writer            // 不写文件时的提示, 不受日志级别影响; 可为 nil
}

// Run 执行完整流程
func (r *Runner) Run(ctx context.Context, opts Options) (Outcome, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	start := time.Now()
	img, err := seedmask.LoadImage(opts.Infile)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLoadImage, err)
	}
	r.Metrics.ObserveStage("load", start)

	log.Info("Running detection",
		zap.String("image", opts.Infile),
		zap.String("prompt", opts.Prompt),
		zap.Float32("threshold", opts.Threshold))
	start = time.Now()
	res, err := r.Detector.Detect(ctx, img, opts.Prompt, opts.Threshold)
	if err != nil {
		return 0, fmt.Errorf("检测失败: %w", err)
	}
	r.Metrics.ObserveStage("detect", start)
	r.Metrics.SetDetections(len(res.Boxes))

	if len(res.Boxes) == 0 {
		log.Info("No objects detected, nothing written", zap.String("prompt", opts.Prompt))
		r.notify("No objects detected for prompt %q, nothing written.", opts.Prompt)
		return r.finish(OutcomeNoDetections), nil
	}
	log.Info("Objects detected", zap.Int("count", len(res.Boxes)))

	if opts.Annotate != "" {
		if err := r.annotate(img, res, opts.Annotate); err != nil {
			return 0, err
		}
		log.Debug("Annotated image written", zap.String("path", opts.Annotate))
	}

	width, height := res.Width, res.Height
	if width == 0 || height == 0 {
		width, height = img.Bounds().Dx(), img.Bounds().Dy()
	}
	centers := detect.Centroids(res.Boxes)
	r.Metrics.SetSeeds(len(centers))

	start = time.Now()
	var out image.Image
	if opts.Floodfill {
		log.Info("Mode: seeded region growing")
		mask, outcome, err := r.grow(opts, centers, log)
		if err != nil || outcome != OutcomeWritten {
			return outcome, err
		}
		out = mask
	} else {
		log.Info("Mode: centroid dots")
		radius := r.DotRadius
		if radius <= 0 {
			radius = seedmask.DefaultDotRadius
		}
		out = seedmask.DrawCentroids(width, height, centers, radius)
	}
	r.Metrics.ObserveStage("render", start)

	if err := seedmask.SaveImage(opts.Outfile, out); err != nil {
		return 0, err
	}
	log.Info("Mask written", zap.String("path", opts.Outfile))
	return r.finish(OutcomeWritten), nil
}

// grow 重新读取灰度原图并保留被种子命中的连通域
func (r *Runner) grow(opts Options, seeds []image.Point, log *zap.Logger) (*image.Gray, Outcome, error) {
	if r.Labeler == nil {
		return nil, 0, errors.New("区域生长模式需要 Labeler")
	}
	gray, err := segment.LoadGray(opts.Infile)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrLoadImage, err)
	}

	mask, m, kept, err := segment.Grow(r.Labeler, gray, opts.BinarizeThreshold, seeds)
	if m != nil {
		log.Info("Found shapes", zap.Int("count", m.Count))
		r.Metrics.SetShapes(m.Count, len(kept))
	}
	if errors.Is(err, segment.ErrNoShapes) {
		log.Warn("No seed lies on a shape, nothing written", zap.Int("seeds", len(seeds)))
		r.notify("None of the %d detected objects lies on a shape, nothing written.", len(seeds))
		return nil, r.finish(OutcomeNoShapes), nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("连通域标记失败: %w", err)
	}
	log.Info("Kept shapes", zap.Int("count", len(kept)))
	return mask, OutcomeWritten, nil
}

func (r *Runner) annotate(img image.Image, res *detect.Result, path string) error {
	rects := make([]image.Rectangle, 0, len(res.Boxes))
	labels := make([]string, 0, len(res.Boxes))
	for _, b := range res.Boxes {
		rects = append(rects, b.Rect())
		labels = append(labels, strconv.FormatFloat(float64(b.Score), 'f', 2, 32))
	}
	if err := seedmask.SaveImage(path, seedmask.DrawBoxes(img, rects, labels, r.Font)); err != nil {
		return fmt.Errorf("写出调试图失败: %w", err)
	}
	return nil
}

func (r *Runner) notify(format string, args ...any) {
	if r.Out != nil {
		fmt.Fprintf(r.Out, format+"\n", args...)
	}
}

func (r *Runner) finish(o Outcome) Outcome {
	r.Metrics.SetOutcome(o.String())
	return o
}
