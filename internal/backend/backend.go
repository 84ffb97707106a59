// Package backend 按配置创建检测器与连通域标记实现.
package backend

import (
	"fmt"

	"github.com/getcharzp/seedmask/detect"
	"github.com/getcharzp/seedmask/detect/cvdnn"
	"github.com/getcharzp/seedmask/internal/config"
	"github.com/getcharzp/seedmask/segment"
	"github.com/getcharzp/seedmask/segment/cvlabel"
)

// NewDetector 根据 detector.backend 创建检测器, 调用方负责 Close
func NewDetector(cfg config.Config) (detect.Detector, error) {
	var (
		d   detect.Detector
		err error
	)
	switch cfg.Detector.Backend {
	case config.BackendONNX:
		d, err = detect.NewONNXDetector(cfg.YoloWorld())
	case config.BackendOpenCV:
		d, err = cvdnn.New(cfg.YoloWorld())
	case config.BackendRemote:
		d, err = detect.NewRemoteDetector(cfg.Detector.Endpoint, cfg.Detector.Timeout)
	default:
		return nil, fmt.Errorf("未知的检测后端: %s", cfg.Detector.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("创建 %s 检测器失败: %w", cfg.Detector.Backend, err)
	}
	return d, nil
}

// NewLabeler 根据 segment.labeler 选择连通域标记实现
func NewLabeler(cfg config.Config) (segment.Labeler, error) {
	switch cfg.Segment.Labeler {
	case config.LabelerOpenCV:
		return cvlabel.Labeler{}, nil
	case config.LabelerNative:
		return segment.PixelLabeler{}, nil
	default:
		return nil, fmt.Errorf("未知的连通域实现: %s", cfg.Segment.Labeler)
	}
}
