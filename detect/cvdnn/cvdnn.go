// Package cvdnn 使用 OpenCV DNN 模块运行导出的 YOLO-World ONNX 模型.
package cvdnn

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/getcharzp/seedmask/detect"
	"github.com/getcharzp/seedmask/yoloworld"
	"gocv.io/x/gocv"
)

// Detector OpenCV DNN 检测器
type Detector struct {
	net       gocv.Net
	inputSize int
	iou       float32
	maxDet    int
	vocab     yoloworld.Vocabulary
}

// New 读取 ONNX 模型
//
// # Params:
//
//	cfg: 与 ONNX Runtime 后端共用的配置, 忽略 OnnxRuntimeLibPath/NumThreads
func New(cfg yoloworld.Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("模型文件不存在: %w", err)
	}

	var vocab yoloworld.Vocabulary
	if cfg.ClassesPath != "" {
		v, err := yoloworld.LoadVocabulary(cfg.ClassesPath)
		if err != nil {
			return nil, err
		}
		vocab = v
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("加载网络失败: %s", cfg.ModelPath)
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if cfg.UseCuda {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}
	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("设置推理后端失败: %w", err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, fmt.Errorf("设置推理设备失败: %w", err)
	}

	return &Detector{
		net:       net,
		inputSize: cfg.InputSize,
		iou:       cfg.IOUThreshold,
		maxDet:    cfg.MaxDet,
		vocab:     vocab,
	}, nil
}

// Detect 执行推理, 输入直接拉伸到 inputSize x inputSize
func (d *Detector) Detect(ctx context.Context, img image.Image, prompt string, threshold float32) (*detect.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("转换图片失败: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("图片为空")
	}

	w, h := mat.Cols(), mat.Rows()
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "images")
	output := d.net.Forward("output0")
	defer output.Close()

	// Output Shape: [1, 4+nc, 8400]
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("输出形状 %v 不是 [1, 4+nc, anchors]", sizes)
	}
	shape := []int64{int64(sizes[0]), int64(sizes[1]), int64(sizes[2])}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("获取输出数据失败: %w", err)
	}

	classID, err := d.vocab.ResolveClass(prompt, sizes[1]-4)
	if err != nil {
		return nil, err
	}

	params := yoloworld.Params{
		OrigW:  w,
		OrigH:  h,
		ScaleX: float32(d.inputSize) / float32(w),
		ScaleY: float32(d.inputSize) / float32(h),
	}
	dets, err := yoloworld.Decode(data, shape, classID, threshold, d.iou, d.maxDet, params)
	if err != nil {
		return nil, err
	}

	res := &detect.Result{Width: w, Height: h, Boxes: make([]detect.Box, 0, len(dets))}
	for _, det := range dets {
		res.Boxes = append(res.Boxes, detect.Box{X1: det.X1, Y1: det.Y1, X2: det.X2, Y2: det.Y2, Score: det.Score})
	}
	return res, nil
}

// Close 释放网络
func (d *Detector) Close() error {
	return d.net.Close()
}
