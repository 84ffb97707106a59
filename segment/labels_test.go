package segment

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCanvas 白底灰度图, rects 区域填黑
func newCanvas(w, h int, rects ...image.Rectangle) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for i := range gray.Pix {
		gray.Pix[i] = 255
	}
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				gray.Pix[y*gray.Stride+x] = 0
			}
		}
	}
	return gray
}

func TestGrow_SeedInOneBlob(t *testing.T) {
	blobA := image.Rect(5, 5, 20, 20)
	blobB := image.Rect(40, 10, 55, 35)
	gray := newCanvas(64, 48, blobA, blobB)

	mask, m, kept, err := Grow(PixelLabeler{}, gray, DefaultThreshold, []image.Point{{X: 12, Y: 12}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count)
	assert.Len(t, kept, 1)

	want := newCanvas(64, 48)
	for i := range want.Pix {
		want.Pix[i] = 0
	}
	for y := blobA.Min.Y; y < blobA.Max.Y; y++ {
		for x := blobA.Min.X; x < blobA.Max.X; x++ {
			want.Pix[y*want.Stride+x] = 255
		}
	}
	assert.Equal(t, want.Pix, mask.Pix)
}

func TestGrow_NoShapes(t *testing.T) {
	gray := newCanvas(32, 32, image.Rect(2, 2, 8, 8))

	mask, m, kept, err := Grow(PixelLabeler{}, gray, DefaultThreshold, []image.Point{{X: 20, Y: 20}, {X: -3, Y: 4}})
	assert.ErrorIs(t, err, ErrNoShapes)
	assert.Nil(t, mask)
	assert.Nil(t, kept)
	require.NotNil(t, m)
	assert.Equal(t, 1, m.Count)
}

func TestSelectLabels(t *testing.T) {
	m := &LabelMap{
		Width:  3,
		Height: 2,
		Count:  2,
		Labels: []int32{
			2, 0, 1,
			2, 0, 1,
		},
	}
	seeds := []image.Point{
		{X: 2, Y: 0}, {X: 2, Y: 1}, // 同一连通域
		{X: 0, Y: 1},
		{X: 1, Y: 0},  // 背景
		{X: 9, Y: 9},  // 越界
		{X: 0, Y: -1}, // 越界
	}
	assert.Equal(t, []int32{1, 2}, SelectLabels(m, seeds))
	assert.Empty(t, SelectLabels(m, nil))
}

func TestMask(t *testing.T) {
	m := &LabelMap{Width: 2, Height: 2, Count: 2, Labels: []int32{1, 0, 2, 2}}
	assert.Equal(t, []uint8{0, 0, 255, 255}, Mask(m, []int32{2}).Pix)
	assert.Equal(t, []uint8{0, 0, 0, 0}, Mask(m, nil).Pix)
}

func TestInverseThreshold(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(gray.Pix, []uint8{0, 127, 128, 255})

	bin := InverseThreshold(gray, DefaultThreshold)
	assert.Equal(t, []uint8{255, 255, 0, 0}, bin.Pix)
}

func TestToGray_SubImage(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(rgba.Pix); i += 4 {
		rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2], rgba.Pix[i+3] = 255, 255, 255, 255
	}
	sub := rgba.SubImage(image.Rect(1, 1, 3, 3))

	gray := ToGray(sub)
	assert.Equal(t, image.Rect(0, 0, 2, 2), gray.Bounds())
	assert.Equal(t, []uint8{255, 255, 255, 255}, gray.Pix)
}

func TestToGray_IgnoresAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 0})
	src.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 0})
	src.SetNRGBA(2, 0, color.NRGBA{A: 255})

	gray := ToGray(src)
	want := color.GrayModel.Convert(color.RGBA{R: 200, G: 100, B: 50, A: 255}).(color.Gray).Y
	assert.Equal(t, []uint8{255, want, 0}, gray.Pix)
	// 透明的白色背景不是前景
	assert.Equal(t, uint8(0), InverseThreshold(gray, DefaultThreshold).Pix[0])
}
