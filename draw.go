package seedmask

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/up-zero/gotool/imageutil"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DefaultDotRadius 质心圆点的默认半径
const DefaultDotRadius = 5

var (
	dotColor = color.RGBA{R: 255, G: 255, B: 255, A: 255} // 白色
	boxColor = color.RGBA{G: 255, A: 255}                 // 绿色检测框
)

// DrawCentroids 在与原图等大的黑色画布上绘制质心圆点
//
// # Params:
//
//	width, height: 原图尺寸
//	centers: 质心坐标
//	radius: 圆点半径
func DrawCentroids(width, height int, centers []image.Point, radius int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	for _, c := range centers {
		imageutil.DrawFilledCircle(canvas, c, radius, dotColor)
	}
	return canvas
}

// DrawBoxes 在原图副本上绘制检测框与标签，用于人工核对检测结果
//
// # Params:
//
//	img: 原图
//	boxes: 检测框
//	labels: 与 boxes 一一对应的标签，可为空
//	drawer: 文本绘制工具，为 nil 时只画框
func DrawBoxes(img image.Image, boxes []image.Rectangle, labels []string, drawer *TextDrawer) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, img.Bounds(), img, img.Bounds().Min, draw.Src)

	for i, b := range boxes {
		corners := []image.Point{
			b.Min,
			{X: b.Max.X, Y: b.Min.Y},
			b.Max,
			{X: b.Min.X, Y: b.Max.Y},
		}
		for k := range corners {
			imageutil.DrawThickLine(dst, corners[k], corners[(k+1)%4], 2, boxColor)
		}
		if drawer != nil && i < len(labels) {
			drawer.DrawText(dst, labels[i], b.Min.X, max(b.Min.Y-4, int(drawer.fontSize)), boxColor)
		}
	}
	return dst
}

// TextDrawer 文本绘制工具
type TextDrawer struct {
	font     *opentype.Font
	face     font.Face
	fontSize float64
}

// NewTextDrawer 创建文本绘制工具
//
// # Params:
//
//	fontPath: 字体路径
//	fontSize: 字体大小, <= 0 时使用 12
func NewTextDrawer(fontPath string, fontSize float64) (*TextDrawer, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("打开字体文件失败：%w", err)
	}

	ttFont, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("解析字体文件失败：%w", err)
	}

	if fontSize <= 0 {
		fontSize = 12
	}
	d := &TextDrawer{font: ttFont}
	if err := d.SetSize(fontSize); err != nil {
		return nil, err
	}
	return d, nil
}

// SetSize 动态调整字体大小
func (d *TextDrawer) SetSize(fontSize float64) error {
	if d.face != nil && d.fontSize == fontSize {
		return nil
	}

	nf, err := opentype.NewFace(d.font, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return err
	}

	if d.face != nil {
		d.face.Close()
	}
	d.face = nf
	d.fontSize = fontSize
	return nil
}

// DrawText 在 (x, y) 处绘制文本，y 为基线
func (d *TextDrawer) DrawText(img draw.Image, text string, x, y int, c color.Color) {
	fd := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: d.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	fd.DrawString(text)
}

// Close 释放资源
func (d *TextDrawer) Close() {
	if d.face != nil {
		d.face.Close()
		d.face = nil
	}
}
