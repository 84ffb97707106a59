// Package detect 定义开放词表检测器的窄接口：给定 (图片, 提示词, 阈值) 返回检测框.
//
// 具体的模型 (YOLO-World ONNX, OpenCV DNN, 远程推理服务) 都是可替换的实现.
package detect

import (
	"context"
	"image"
)

// Box 原图像素坐标下的检测框
type Box struct {
	X1, Y1, X2, Y2 float32
	Score          float32
}

// Result 单张图片的检测结果, 与原图尺寸绑定
type Result struct {
	Width, Height int
	Boxes         []Box // 置信度均 >= 调用时的阈值
}

// Detector 开放词表检测器
type Detector interface {
	// Detect 用提示词作为唯一类别, 对 img 做一次推理
	Detect(ctx context.Context, img image.Image, prompt string, threshold float32) (*Result, error)
	Close() error
}

// Centroid 检测框中心, 浮点中点向零截断
func Centroid(b Box) image.Point {
	return image.Point{
		X: int((b.X1 + b.X2) / 2),
		Y: int((b.Y1 + b.Y2) / 2),
	}
}

// Centroids 按检测顺序计算全部中心, 重叠的框可能产生重复点
func Centroids(boxes []Box) []image.Point {
	points := make([]image.Point, 0, len(boxes))
	for _, b := range boxes {
		points = append(points, Centroid(b))
	}
	return points
}

// Rect 检测框的整数矩形, 用于绘制
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// filterScore 丢弃低于阈值的框
func filterScore(boxes []Box, threshold float32) []Box {
	kept := boxes[:0]
	for _, b := range boxes {
		if b.Score >= threshold {
			kept = append(kept, b)
		}
	}
	return kept
}
