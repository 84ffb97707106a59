package logger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu sync.RWMutex
	log   *zap.Logger
	sugar *zap.SugaredLogger
)

// InitProduction 初始化 JSON 格式的 logger, 输出到 stderr
func InitProduction(level string) error {
	return initWith(zap.NewProductionConfig(), level)
}

// InitDevelopment 初始化控制台格式的 logger (CLI 默认)
func InitDevelopment(level string) error {
	return initWith(zap.NewDevelopmentConfig(), level)
}

// Init 按 mode ("development" | "production") 选择初始化方式
func Init(level, mode string) error {
	switch mode {
	case "", "development":
		return InitDevelopment(level)
	case "production":
		return InitProduction(level)
	default:
		return fmt.Errorf("未知的日志模式: %s", mode)
	}
}

func initWith(cfg zap.Config, level string) error {
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("日志级别无效: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.Fields(zap.String("run_id", uuid.NewString())))
	if err != nil {
		return err
	}
	setLogger(l)
	return nil
}

// setLogger 替换本包及 zap 全局 logger
func setLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	zap.ReplaceGlobals(l)
	if log != nil {
		_ = log.Sync()
	}
	log = l
	sugar = l.Sugar()
}

// Log 返回 *zap.Logger (非 nil)
func Log() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		return log
	}
	// 未初始化时返回 zap 全局 (可能是 noop)
	return zap.L()
}

// S 返回 *zap.SugaredLogger (非 nil)
func S() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	if sugar != nil {
		return sugar
	}
	return zap.S()
}

// Sync flush logs
func Sync() {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		_ = log.Sync()
	}
}
