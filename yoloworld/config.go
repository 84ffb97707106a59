package yoloworld

import (
	"github.com/getcharzp/seedmask"
)

// Config 引擎的初始化参数
type Config struct {
	ModelPath          string // ONNX 模型路径 (由 yolov8s-worldv2.pt 导出)
	ClassesPath        string // 导出时 set_classes 使用的词表, 每行一个类别, 单类别模型可为空
	OnnxRuntimeLibPath string // ONNX Runtime 动态库路径

	// 推理参数
	ConfThreshold float32 // 置信度阈值 (默认 0.25)
	IOUThreshold  float32 // NMS IOU 阈值 (默认 0.7)
	MaxDet        int     // 单张图片最多保留的检测框 (默认 300)

	// 模型参数
	InputSize int // 默认 640

	// 可选参数
	UseCuda    bool // (可选) 是否启用 CUDA
	NumThreads int  // (可选) ONNX 线程数, 默认由CPU核心数决定
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		ModelPath:          "./yoloworld_weights/yolov8s-worldv2.onnx",
		OnnxRuntimeLibPath: seedmask.DefaultLibraryPath(),
		ConfThreshold:      0.25,
		IOUThreshold:       0.70,
		MaxDet:             300,
		InputSize:          640,
	}
}

// Params 原图与模型输入之间的缩放关系
type Params struct {
	OrigW, OrigH   int
	ScaleX, ScaleY float32 // 输入尺度 = 原图尺度 * Scale
}

// DetResult 检测结果, 坐标为原图上的浮点像素坐标
type DetResult struct {
	ClassID        int
	Score          float32
	X1, Y1, X2, Y2 float32
}

// 候选结果
type candidate struct {
	box   [4]float32 // 原图上的 x1, y1, x2, y2
	score float32
}
