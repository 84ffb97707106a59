package segment

import (
	"fmt"
	"image"
)

// HDome h-dome 变换: I - R(I - h, I), R 为膨胀重建
//
// 结果保留高度不超过 h 的局部峰, 背景被压平为 0.
//
// # Params:
//
//	gray: 输入灰度图
//	height: 峰高 h, >= 0
//	connectivity: 4 或 8
func HDome(gray *image.Gray, height, connectivity int) (*image.Gray, error) {
	if connectivity != 4 && connectivity != 8 {
		return nil, fmt.Errorf("连通性必须为 4 或 8, 实际为 %d", connectivity)
	}
	if height < 0 {
		return nil, fmt.Errorf("峰高不能为负数: %d", height)
	}

	src := ToGray(gray)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	marker := make([]uint8, len(src.Pix))
	for i, v := range src.Pix {
		marker[i] = uint8(max(int(v)-height, 0))
	}
	reconstruct(marker, src.Pix, w, h, connectivity)

	out := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		out.Pix[i] = v - marker[i]
	}
	return out, nil
}

// reconstruct 灰度膨胀重建, 交替做光栅/反光栅扫描直到稳定, 结果写回 marker
func reconstruct(marker, mask []uint8, w, h, connectivity int) {
	// 光栅扫描时已访问过的邻居 (反向扫描取相反方向)
	offsets := [][2]int{{-1, 0}, {0, -1}}
	if connectivity == 8 {
		offsets = append(offsets, [2]int{-1, -1}, [2]int{1, -1})
	}

	update := func(x, y, sign int) bool {
		i := y*w + x
		v := marker[i]
		for _, o := range offsets {
			nx, ny := x+sign*o[0], y+sign*o[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			v = max(v, marker[ny*w+nx])
		}
		v = min(v, mask[i])
		if v != marker[i] {
			marker[i] = v
			return true
		}
		return false
	}

	for changed := true; changed; {
		changed = false
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if update(x, y, 1) {
					changed = true
				}
			}
		}
		for y := h - 1; y >= 0; y-- {
			for x := w - 1; x >= 0; x-- {
				if update(x, y, -1) {
					changed = true
				}
			}
		}
	}
}
