package seedmask

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// LoadImage 读取图片，按 EXIF 方向信息自动旋转并丢弃 alpha 通道
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", path, err)
	}
	return Opaque(img), nil
}

// Opaque 丢弃 alpha 通道，保留存储的 RGB 值
//
// 与 OpenCV 以 3 通道读取带透明度的 PNG 一致: 透明像素保持原来的颜色，而不是变黑.
func Opaque(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// SaveImage 保存图片，格式由扩展名决定 (png, jpg, bmp, tif, gif)
func SaveImage(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("保存图片 %s 失败: %w", path, err)
	}
	return nil
}
