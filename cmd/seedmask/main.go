// seedmask 用开放词表检测器在图片中查找提示词描述的目标, 输出中心点掩码或区域生长掩码.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/getcharzp/seedmask"
	"github.com/getcharzp/seedmask/internal/app"
	"github.com/getcharzp/seedmask/internal/backend"
	"github.com/getcharzp/seedmask/internal/cli"
	"github.com/getcharzp/seedmask/internal/config"
	"github.com/getcharzp/seedmask/internal/logger"
	"github.com/getcharzp/seedmask/internal/metrics"
	"go.uber.org/zap"
)

// 版本信息, 构建时由 ldflags 注入
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// newDetector 测试时替换
var newDetector = backend.NewDetector

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	args, err := cli.Parse(argv)
	switch {
	case errors.Is(err, cli.ErrHelp):
		cli.Usage(stdout)
		return 0
	case errors.Is(err, cli.ErrUsage):
		fmt.Fprintf(stderr, "seedmask: %v\n", err)
		cli.Usage(stderr)
		return 2
	case err != nil:
		fmt.Fprintf(stderr, "seedmask: %v\n", err)
		return 1
	}
	if args.Version {
		fmt.Fprintf(stdout, "seedmask %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	}

	cfg, err := config.Load(args.Config)
	if err != nil {
		fmt.Fprintf(stderr, "seedmask: %v\n", err)
		return 1
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Mode); err != nil {
		fmt.Fprintf(stderr, "seedmask: %v\n", err)
		return 1
	}
	defer logger.Sync()
	log := logger.Log()

	det, err := newDetector(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "seedmask: %v\n", err)
		return 1
	}
	defer det.Close()
	log.Debug("Detector ready", zap.String("backend", cfg.Detector.Backend), zap.String("model", cfg.Detector.Model))

	labeler, err := backend.NewLabeler(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "seedmask: %v\n", err)
		return 1
	}

	var font *seedmask.TextDrawer
	if args.Annotate != "" {
		if cfg.Render.Font == "" {
			log.Warn("No font configured, annotated image will have boxes only")
		} else if font, err = seedmask.NewTextDrawer(cfg.Render.Font, cfg.Render.FontSize); err != nil {
			log.Warn("Failed to load font, annotated image will have boxes only", zap.Error(err))
			font = nil
		} else {
			defer font.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	runner := &app.Runner{
		Detector:  det,
		Labeler:   labeler,
		Log:       log,
		Metrics:   m,
		DotRadius: cfg.Render.DotRadius,
		Font:      font,
		Out:       stdout,
	}
	outcome, runErr := runner.Run(ctx, app.Options{
		Infile:            args.Infile,
		Outfile:           args.Outfile,
		Threshold:         args.Threshold,
		Prompt:            args.Prompt,
		Floodfill:         args.Floodfill,
		Annotate:          args.Annotate,
		BinarizeThreshold: uint8(cfg.Segment.Threshold),
	})

	if err := m.SampleMemory(); err != nil {
		log.Debug("Failed to sample memory", zap.Error(err))
	}
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn("Failed to write metrics", zap.Error(err))
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "seedmask: %v\n", runErr)
		return 1
	}
	log.Debug("Done", zap.Stringer("outcome", outcome))
	return 0
}
