package seedmask

import (
	"fmt"
	"runtime"
	"sync"

	ort "github.com/getcharzp/onnxruntime_purego"
)

// OnnxConfig ONNX Runtime 引擎与会话参数
type OnnxConfig struct {
	OnnxEngine     *ort.Engine
	SessionOptions *ort.SessionOptions

	// 必填参数
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	// 可选参数
	UseCuda    bool // (可选) 是否启用 CUDA
	NumThreads int  // (可选) ONNX 线程数, 默认由CPU核心数决定
}

var (
	engine  *ort.Engine
	initErr error
	once    sync.Once
)

// New 加载 onnxruntime 动态库并创建会话选项
//
// 进程内只加载一次动态库, 之后的调用复用第一次创建的引擎.
func (cfg *OnnxConfig) New() error {
	if cfg.OnnxRuntimeLibPath == "" {
		return fmt.Errorf("OnnxRuntimeLibPath 不能为空")
	}
	once.Do(func() {
		engine, initErr = ort.NewEngine(cfg.OnnxRuntimeLibPath)
	})
	if initErr != nil {
		return fmt.Errorf("初始化 ONNX Runtime 失败: %w", initErr)
	}
	cfg.OnnxEngine = engine

	options, err := engine.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("创建 SessionOptions 失败: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(int32(cfg.NumThreads)); err != nil {
			options.Destroy()
			return fmt.Errorf("设置线程数失败: %w", err)
		}
	}

	// 启用CUDA
	if cfg.UseCuda {
		if err := options.EnableCUDA(); err != nil {
			options.Destroy()
			return fmt.Errorf("启用 CUDA 失败: %w", err)
		}
	}
	cfg.SessionOptions = options

	return nil
}

// Destroy 释放会话选项, 共享的引擎随进程退出释放
func (cfg *OnnxConfig) Destroy() {
	if cfg.SessionOptions != nil {
		cfg.SessionOptions.Destroy()
		cfg.SessionOptions = nil
	}
}

// DefaultLibraryPath 根据运行时环境判断加载哪个库文件
func DefaultLibraryPath() string {
	baseDir := "./lib/"
	libName := "onnxruntime"

	// windows onnxruntime.dll
	if runtime.GOOS == "windows" {
		return baseDir + libName + ".dll"
	}

	var ext string
	switch runtime.GOOS {
	case "darwin":
		ext = "dylib"
	case "linux":
		ext = "so"
	default:
		return baseDir + libName + "_amd64.so"
	}

	// ./lib/onnxruntime_amd64.so, ./lib/onnxruntime_arm64.dylib ...
	return fmt.Sprintf("%s%s_%s.%s", baseDir, libName, runtime.GOARCH, ext)
}
