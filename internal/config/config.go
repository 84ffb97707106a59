// Package config 读取 seedmask 的运行配置: 默认值 < YAML 文件 < 环境变量 (.env).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/getcharzp/seedmask"
	"github.com/getcharzp/seedmask/yoloworld"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 检测后端
const (
	BackendONNX   = "onnx"
	BackendOpenCV = "opencv"
	BackendRemote = "remote"
)

// 连通域标记实现
const (
	LabelerOpenCV = "opencv"
	LabelerNative = "native"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "SEEDMASK_"

type Config struct {
	Detector DetectorConfig `yaml:"detector"`
	Render   RenderConfig   `yaml:"render"`
	Segment  SegmentConfig  `yaml:"segment"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type DetectorConfig struct {
	Backend        string        `yaml:"backend"`
	Model          string        `yaml:"model"`
	Classes        string        `yaml:"classes"`
	OnnxRuntimeLib string        `yaml:"onnxruntimeLib"`
	InputSize      int           `yaml:"inputSize"`
	IOU            float32       `yaml:"iou"`
	MaxDet         int           `yaml:"maxDet"`
	UseCuda        bool          `yaml:"useCuda"`
	NumThreads     int           `yaml:"numThreads"`
	Endpoint       string        `yaml:"endpoint"` // remote 后端地址
	Timeout        time.Duration `yaml:"timeout"`
}

type RenderConfig struct {
	DotRadius int     `yaml:"dotRadius"`
	Font      string  `yaml:"font"` // --annotate 使用的字体, 为空时只画框
	FontSize  float64 `yaml:"fontSize"`
}

type SegmentConfig struct {
	Labeler   string `yaml:"labeler"`
	Threshold int    `yaml:"threshold"` // 反向二值化阈值
}

type LogConfig struct {
	Level string `yaml:"level"`
	Mode  string `yaml:"mode"` // development | production
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // 为空时不写出
}

// Default 默认配置
func Default() Config {
	det := yoloworld.DefaultConfig()
	return Config{
		Detector: DetectorConfig{
			Backend:        BackendONNX,
			Model:          det.ModelPath,
			OnnxRuntimeLib: det.OnnxRuntimeLibPath,
			InputSize:      det.InputSize,
			IOU:            det.IOUThreshold,
			MaxDet:         det.MaxDet,
			Timeout:        30 * time.Second,
		},
		Render: RenderConfig{
			DotRadius: seedmask.DefaultDotRadius,
			FontSize:  14,
		},
		Segment: SegmentConfig{
			Labeler:   LabelerOpenCV,
			Threshold: 127,
		},
		Log: LogConfig{
			Level: "info",
			Mode:  "development",
		},
	}
}

// Load 在默认配置上依次叠加 YAML 文件和环境变量
//
// # Params:
//
//	path: YAML 文件路径, 为空时跳过
//	envFiles: .env 文件, 不存在时忽略; 为空时尝试当前目录的 .env
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("读取 %s 失败: %w", f, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv 用 SEEDMASK_* 环境变量覆盖配置
func (c *Config) ApplyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	setString("BACKEND", &c.Detector.Backend)
	setString("MODEL", &c.Detector.Model)
	setString("CLASSES", &c.Detector.Classes)
	setString("ORT_LIB", &c.Detector.OnnxRuntimeLib)
	setString("ENDPOINT", &c.Detector.Endpoint)
	setString("FONT", &c.Render.Font)
	setString("LABELER", &c.Segment.Labeler)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_MODE", &c.Log.Mode)
	setString("METRICS_FILE", &c.Metrics.Textfile)

	if v := os.Getenv(EnvPrefix + "USE_CUDA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sUSE_CUDA 无效: %w", EnvPrefix, err)
		}
		c.Detector.UseCuda = b
	}
	if v := os.Getenv(EnvPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT 无效: %w", EnvPrefix, err)
		}
		c.Detector.Timeout = d
	}
	return nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	switch c.Detector.Backend {
	case BackendONNX, BackendOpenCV:
		if c.Detector.Model == "" {
			return errors.New("detector.model 不能为空")
		}
		if c.Detector.InputSize <= 0 || c.Detector.InputSize%32 != 0 {
			return fmt.Errorf("detector.inputSize 必须是 32 的正整数倍: %d", c.Detector.InputSize)
		}
	case BackendRemote:
		if c.Detector.Endpoint == "" {
			return errors.New("remote 后端需要 detector.endpoint")
		}
	default:
		return fmt.Errorf("未知的检测后端: %s", c.Detector.Backend)
	}
	if c.Detector.IOU <= 0 || c.Detector.IOU > 1 {
		return fmt.Errorf("detector.iou 超出 (0, 1]: %v", c.Detector.IOU)
	}

	switch c.Segment.Labeler {
	case LabelerOpenCV, LabelerNative:
	default:
		return fmt.Errorf("未知的连通域实现: %s", c.Segment.Labeler)
	}
	if c.Segment.Threshold < 0 || c.Segment.Threshold > 255 {
		return fmt.Errorf("segment.threshold 超出 [0, 255]: %d", c.Segment.Threshold)
	}
	if c.Render.DotRadius <= 0 {
		return fmt.Errorf("render.dotRadius 必须为正数: %d", c.Render.DotRadius)
	}
	return nil
}

// YoloWorld 转换为检测引擎配置
func (c *Config) YoloWorld() yoloworld.Config {
	cfg := yoloworld.DefaultConfig()
	cfg.ModelPath = c.Detector.Model
	cfg.ClassesPath = c.Detector.Classes
	cfg.OnnxRuntimeLibPath = c.Detector.OnnxRuntimeLib
	cfg.InputSize = c.Detector.InputSize
	cfg.IOUThreshold = c.Detector.IOU
	if c.Detector.MaxDet > 0 {
		cfg.MaxDet = c.Detector.MaxDet
	}
	cfg.UseCuda = c.Detector.UseCuda
	cfg.NumThreads = c.Detector.NumThreads
	return cfg
}
