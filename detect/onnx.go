package detect

import (
	"context"
	"image"

	"github.com/getcharzp/seedmask/yoloworld"
)

// ONNXDetector 基于 ONNX Runtime 的 YOLO-World 检测器
type ONNXDetector struct {
	engine *yoloworld.DetEngine
}

// NewONNXDetector 加载模型并创建会话
func NewONNXDetector(cfg yoloworld.Config) (*ONNXDetector, error) {
	engine, err := yoloworld.NewDetEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &ONNXDetector{engine: engine}, nil
}

// Detect 执行推理
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image, prompt string, threshold float32) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dets, err := d.engine.Predict(img, prompt, threshold)
	if err != nil {
		return nil, err
	}
	return fromDetResults(img, dets), nil
}

// Close 释放会话
func (d *ONNXDetector) Close() error {
	d.engine.Destroy()
	return nil
}

func fromDetResults(img image.Image, dets []yoloworld.DetResult) *Result {
	res := &Result{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		Boxes:  make([]Box, 0, len(dets)),
	}
	for _, d := range dets {
		res.Boxes = append(res.Boxes, Box{X1: d.X1, Y1: d.Y1, X2: d.X2, Y2: d.Y2, Score: d.Score})
	}
	return res
}
