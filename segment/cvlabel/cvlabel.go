// Package cvlabel 用 OpenCV 实现 segment.Labeler.
package cvlabel

import (
	"fmt"
	"image"

	"github.com/getcharzp/seedmask/segment"
	"gocv.io/x/gocv"
)

// Labeler cv.threshold(THRESH_BINARY_INV) + cv.connectedComponents, 默认 8 连通
type Labeler struct{}

// Label 实现 segment.Labeler
func (Labeler) Label(gray *image.Gray, threshold uint8) (*segment.LabelMap, error) {
	// ImageGrayToMatGray 要求图像从 (0,0) 开始且无额外步长
	src, err := gocv.ImageGrayToMatGray(segment.ToGray(gray))
	if err != nil {
		return nil, fmt.Errorf("转换灰度图失败: %w", err)
	}
	defer src.Close()

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(src, &bin, float32(threshold), 255, gocv.ThresholdBinaryInv)

	labels := gocv.NewMat()
	defer labels.Close()
	n := gocv.ConnectedComponents(bin, &labels)

	w, h := labels.Cols(), labels.Rows()
	m := &segment.LabelMap{
		Width:  w,
		Height: h,
		Count:  max(n-1, 0),
		Labels: make([]int32, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Labels[y*w+x] = labels.GetIntAt(y, x)
		}
	}
	return m, nil
}
