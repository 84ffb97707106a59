// Package segment 实现种子区域生长：二值化、连通域标记、按种子保留连通域.
//
// 标记结果用 LabelMap 表示, 0 为背景. 连通域标记有两种实现:
// OpenCV 的 connectedComponents (cvlabel 子包) 和纯 Go 的 PixelLabeler,
// 两者都使用 8 连通.
package segment

import (
	"errors"
	"image"
	"slices"
)

// DefaultThreshold 反向二值化的默认阈值, 灰度 > 127 视为背景
const DefaultThreshold = 127

// ErrNoShapes 所有种子都没有落在非背景连通域上
var ErrNoShapes = errors.New("种子没有落在任何形状上")

// LabelMap 连通域标记图
type LabelMap struct {
	Width, Height int
	Count         int     // 不含背景的连通域个数
	Labels        []int32 // 行优先, 长度 Width*Height
}

// Labeler 对灰度图做反向二值化并标记连通域
type Labeler interface {
	Label(gray *image.Gray, threshold uint8) (*LabelMap, error)
}

// At 返回 (x, y) 处的标签, 越界时返回 0
func (m *LabelMap) At(x, y int) int32 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Labels[y*m.Width+x]
}

// SelectLabels 收集种子命中的非背景标签, 去重后升序返回
//
// 越界的种子和落在背景 (标签 0) 上的种子被忽略.
func SelectLabels(m *LabelMap, seeds []image.Point) []int32 {
	seen := make(map[int32]struct{})
	kept := make([]int32, 0)
	for _, p := range seeds {
		label := m.At(p.X, p.Y)
		if label == 0 {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		kept = append(kept, label)
	}
	slices.Sort(kept)
	return kept
}

// Mask 把标签属于 kept 的像素置为 255, 其余为 0
func Mask(m *LabelMap, kept []int32) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	if len(kept) == 0 {
		return mask
	}

	keep := make(map[int32]struct{}, len(kept))
	for _, l := range kept {
		keep[l] = struct{}{}
	}
	for i, l := range m.Labels {
		if l == 0 {
			continue
		}
		if _, ok := keep[l]; ok {
			mask.Pix[i] = 255
		}
	}
	return mask
}

// Grow 完整的种子区域生长: 标记连通域, 选出被种子命中的连通域并生成掩码
//
// 没有任何连通域被命中时返回 ErrNoShapes, 此时 LabelMap 仍然有效.
func Grow(l Labeler, gray *image.Gray, threshold uint8, seeds []image.Point) (*image.Gray, *LabelMap, []int32, error) {
	m, err := l.Label(gray, threshold)
	if err != nil {
		return nil, nil, nil, err
	}
	kept := SelectLabels(m, seeds)
	if len(kept) == 0 {
		return nil, m, nil, ErrNoShapes
	}
	return Mask(m, kept), m, kept, nil
}
