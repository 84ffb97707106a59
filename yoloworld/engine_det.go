package yoloworld

import (
	"fmt"
	"image"
	"os"
	"runtime"

	"github.com/getcharzp/seedmask"
	"github.com/up-zero/gotool/convertutil"
	ort "github.com/getcharzp/onnxruntime_purego"
)

// DetEngine YOLO-World v2 检测引擎
//
// 开放词表在导出 ONNX 时已固化为 Config.ClassesPath 中的类别,
// 推理时只对与提示词匹配的那一列打分.
type DetEngine struct {
	session *ort.Session
	onnx    *seedmask.OnnxConfig
	config  Config
	vocab   Vocabulary
}

// NewDetEngine 初始化检测引擎
func NewDetEngine(cfg Config) (*DetEngine, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("模型文件不存在: %w", err)
	}

	var vocab Vocabulary
	if cfg.ClassesPath != "" {
		v, err := LoadVocabulary(cfg.ClassesPath)
		if err != nil {
			return nil, err
		}
		vocab = v
	}

	oc := new(seedmask.OnnxConfig)
	if err := convertutil.CopyProperties(cfg, oc); err != nil {
		return nil, fmt.Errorf("复制参数失败: %w", err)
	}
	// 初始化 ONNX
	if err := oc.New(); err != nil {
		return nil, err
	}

	session, err := oc.OnnxEngine.NewSession(cfg.ModelPath, oc.SessionOptions)
	if err != nil {
		oc.Destroy()
		return nil, fmt.Errorf("创建 ONNX 会话失败: %w", err)
	}

	return &DetEngine{
		session: session,
		onnx:    oc,
		config:  cfg,
		vocab:   vocab,
	}, nil
}

// Destroy 释放相关资源
func (e *DetEngine) Destroy() {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	if e.onnx != nil {
		e.onnx.Destroy()
	}
}

// Predict 执行检测推理
//
// # Params:
//
//	img: 原图
//	prompt: 提示词, 必须在词表中 (单类别模型除外)
//	conf: 置信度阈值, < 0 时使用 Config.ConfThreshold
func (e *DetEngine) Predict(img image.Image, prompt string, conf float32) ([]DetResult, error) {
	if conf < 0 {
		conf = e.config.ConfThreshold
	}

	// 预处理
	inputTensor, inputData, params, err := preprocess(img, e.config.InputSize)
	if err != nil {
		return nil, fmt.Errorf("预处理失败: %w", err)
	}
	defer inputTensor.Destroy()

	// 推理
	outputValues, err := e.session.Run(map[string]*ort.Value{
		"images": inputTensor,
	})
	runtime.KeepAlive(inputData)
	if err != nil {
		return nil, fmt.Errorf("推理失败: %w", err)
	}
	for _, v := range outputValues {
		defer v.Destroy()
	}
	outputValue, ok := outputValues["output0"]
	if !ok {
		return nil, fmt.Errorf("模型缺少输出 output0")
	}

	// Output Shape: [1, 4+nc, 8400]
	data, err := ort.GetTensorData[float32](outputValue)
	if err != nil {
		return nil, fmt.Errorf("获取输出数据失败: %w", err)
	}
	shape, err := outputValue.GetShape()
	if err != nil {
		return nil, fmt.Errorf("获取输出形状失败: %w", err)
	}
	if len(shape) != 3 {
		return nil, fmt.Errorf("输出形状 %v 不是 [1, 4+nc, anchors]", shape)
	}

	classID, err := e.vocab.ResolveClass(prompt, int(shape[1])-4)
	if err != nil {
		return nil, err
	}

	// 后处理
	return Decode(out.GetData(), shape, classID, conf, e.config.IOUThreshold, e.config.MaxDet, params)
}
