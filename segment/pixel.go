package segment

import (
	"image"
)

// PixelLabeler 纯 Go 的连通域标记, 8 连通, 标签按光栅扫描顺序从 1 开始分配
type PixelLabeler struct{}

// Label 实现 Labeler
func (PixelLabeler) Label(gray *image.Gray, threshold uint8) (*LabelMap, error) {
	bin := InverseThreshold(gray, threshold)
	w, h := bin.Bounds().Dx(), bin.Bounds().Dy()

	m := &LabelMap{
		Width:  w,
		Height: h,
		Labels: make([]int32, w*h),
	}

	var next int32
	queue := make([]int, 0, 64)
	for start, v := range bin.Pix {
		if v == 0 || m.Labels[start] != 0 {
			continue
		}
		next++
		m.Labels[start] = next

		// 以切片作队列做广度优先扩展
		queue = append(queue[:0], start)
		for k := 0; k < len(queue); k++ {
			idx := queue[k]
			x, y := idx%w, idx/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					n := ny*w + nx
					if bin.Pix[n] == 0 || m.Labels[n] != 0 {
						continue
					}
					m.Labels[n] = next
					queue = append(queue, n)
				}
			}
		}
	}
	m.Count = int(next)
	return m, nil
}
