// hdomes 对 8 位灰度图做反相后的 h-dome 变换, 把暗的小目标变成独立的亮峰, 结果写为 PNG.
//
//	hdomes <infile> <outfile> <h>
package main

import (
	"fmt"
	"image"
	"io"
	"os"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/getcharzp/seedmask"
	"github.com/getcharzp/seedmask/segment"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(argv []string, stderr io.Writer) int {
	if len(argv) != 3 {
		fmt.Fprintln(stderr, "usage: hdomes <infile> <outfile> <h>")
		return 1
	}
	h, err := strconv.Atoi(argv[2])
	if err != nil || h < 0 {
		fmt.Fprintf(stderr, "hdomes: h 必须是非负整数: %q\n", argv[2])
		return 1
	}

	img, err := seedmask.LoadImage(argv[0])
	if err != nil {
		fmt.Fprintf(stderr, "hdomes: %v\n", err)
		return 1
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		fmt.Fprintf(stderr, "hdomes: 输入不是 8 位灰度图 (%T)\n", img)
		return 1
	}

	out, err := segment.HDome(segment.Invert(gray), h, 4)
	if err != nil {
		fmt.Fprintf(stderr, "hdomes: %v\n", err)
		return 1
	}
	if err := writePNG(argv[1], out); err != nil {
		fmt.Fprintf(stderr, "hdomes: %v\n", err)
		return 1
	}
	return 0
}

// writePNG 无论扩展名都写为 PNG
func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		return fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return f.Close()
}
