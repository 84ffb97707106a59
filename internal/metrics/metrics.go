// Package metrics 记录单次运行的指标, 运行结束时以 node_exporter textfile 格式写出.
package metrics

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// Run 单次运行的指标, nil 接收者上的方法都是空操作
type Run struct {
	registry   *prometheus.Registry
	detections prometheus.Gauge
	seeds      prometheus.Gauge
	shapes     prometheus.Gauge
	kept       prometheus.Gauge
	stage      *prometheus.GaugeVec
	outcome    *prometheus.GaugeVec
	memUsage   prometheus.Gauge
}

// New 创建使用独立 registry 的指标集合
func New() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		detections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seedmask_detections",
			Help: "Number of boxes returned by the detector",
		}),
		seeds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seedmask_seeds",
			Help: "Number of centroids used as seeds",
		}),
		shapes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seedmask_shapes",
			Help: "Number of connected components found in the binarized image",
		}),
		kept: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seedmask_kept_shapes",
			Help: "Number of connected components hit by a seed",
		}),
		stage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "seedmask_stage_seconds",
			Help: "Wall time spent in each pipeline stage",
		}, []string{"stage"}),
		outcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "seedmask_outcome",
			Help: "1 for the outcome of the run",
		}, []string{"outcome"}),
		memUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seedmask_memory_usage_megabytes",
			Help: "Resident memory of the process in Megabytes",
		}),
	}
	r.registry.MustRegister(r.detections, r.seeds, r.shapes, r.kept, r.stage, r.outcome, r.memUsage)
	return r
}

// Registry 返回内部 registry
func (r *Run) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Run) SetDetections(n int) {
	if r != nil {
		r.detections.Set(float64(n))
	}
}

func (r *Run) SetSeeds(n int) {
	if r != nil {
		r.seeds.Set(float64(n))
	}
}

// SetShapes 记录连通域总数与被保留的个数
func (r *Run) SetShapes(total, kept int) {
	if r != nil {
		r.shapes.Set(float64(total))
		r.kept.Set(float64(kept))
	}
}

// ObserveStage 记录阶段耗时, 用法: defer m.ObserveStage("detect", time.Now())
func (r *Run) ObserveStage(stage string, start time.Time) {
	if r != nil {
		r.stage.WithLabelValues(stage).Set(time.Since(start).Seconds())
	}
}

func (r *Run) SetOutcome(outcome string) {
	if r != nil {
		r.outcome.WithLabelValues(outcome).Set(1)
	}
}

// SampleMemory 采样当前进程的 RSS
func (r *Run) SampleMemory() error {
	if r == nil {
		return nil
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("获取进程信息失败: %w", err)
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return fmt.Errorf("获取内存信息失败: %w", err)
	}
	r.memUsage.Set(float64(mem.RSS) / 1024 / 1024)
	return nil
}

// WriteTextfile 原子地写出全部指标
func (r *Run) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("写出指标失败: %w", err)
	}
	return nil
}
