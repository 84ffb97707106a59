package segment

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/getcharzp/seedmask"
)

// LoadGray 从磁盘重新读取图片并转换为 8 位灰度图
func LoadGray(path string) (*image.Gray, error) {
	img, err := seedmask.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return ToGray(img), nil
}

// ToGray 按 BT.601 权重 (同 color.GrayModel) 转换为从 (0,0) 开始的 8 位灰度图
//
// alpha 通道被忽略, 透明像素按存储的颜色换算, 与 cv2.IMREAD_GRAYSCALE 一致.
func ToGray(img image.Image) *image.Gray {
	src := imaging.Clone(img)
	gray := image.NewGray(src.Rect)
	for i := range gray.Pix {
		p := src.Pix[4*i : 4*i+3 : 4*i+3]
		r, g, b := uint32(p[0])*0x101, uint32(p[1])*0x101, uint32(p[2])*0x101
		gray.Pix[i] = uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 24)
	}
	return gray
}

// InverseThreshold 反向二值化: v > threshold 为 0, 否则为 255
func InverseThreshold(gray *image.Gray, threshold uint8) *image.Gray {
	b := gray.Bounds()
	bin := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x, v := range row {
			if v <= threshold {
				bin.Pix[y*bin.Stride+x] = 255
			}
		}
	}
	return bin
}

// Invert 灰度反相, 暗的目标变为亮的峰
func Invert(gray *image.Gray) *image.Gray {
	out := ToGray(gray)
	for i, v := range out.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}
