// Package cli 解析 seedmask 的命令行.
//
// 选项可以出现在位置参数之间或之后, 例如
//
//	seedmask in.jpg out.png 0.3 red apple --floodfill
//
// 形如 -0.1 的负数被当作位置参数, 以便阈值校验给出明确的错误.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrUsage 命令行无法解析, 退出码 2
	ErrUsage = errors.New("命令行参数错误")
	// ErrThreshold 阈值不在 [0, 1], 退出码 1
	ErrThreshold = errors.New("阈值必须在 [0, 1] 之间")
	// ErrHelp 请求了 -h/--help
	ErrHelp = flag.ErrHelp
)

// Args 解析结果
type Args struct {
	Infile    string
	Outfile   string
	Threshold float32
	Prompt    string // 各个提示词以单个空格连接

	Floodfill bool
	Config    string
	Annotate  string
	Version   bool
}

func newFlagSet(a *Args) *flag.FlagSet {
	fs := flag.NewFlagSet("seedmask", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&a.Floodfill, "floodfill", false, "use seeded region growing instead of centroid dots")
	fs.StringVar(&a.Config, "config", "", "path of a YAML config file")
	fs.StringVar(&a.Annotate, "annotate", "", "also write the input image with boxes and scores drawn to this path")
	fs.BoolVar(&a.Version, "version", false, "print version and exit")
	return fs
}

// Parse 解析不含程序名的参数列表
func Parse(argv []string) (*Args, error) {
	a := &Args{}
	fs := newFlagSet(a)

	flags, positional, err := split(fs, argv)
	if err != nil {
		return nil, err
	}
	if err := fs.Parse(flags); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if a.Version {
		return a, nil
	}

	if len(positional) < 4 {
		return nil, fmt.Errorf("%w: 需要 <infile> <outfile> <thres> <prompt...>, 实际只有 %d 个参数", ErrUsage, len(positional))
	}
	a.Infile, a.Outfile = positional[0], positional[1]

	t, err := strconv.ParseFloat(positional[2], 32)
	if err != nil {
		return nil, fmt.Errorf("%w: 阈值 %q 不是数字", ErrUsage, positional[2])
	}
	if !(t >= 0 && t <= 1) {
		return nil, fmt.Errorf("%w, 实际为 %s", ErrThreshold, positional[2])
	}
	a.Threshold = float32(t)
	a.Prompt = strings.Join(positional[3:], " ")
	return a, nil
}

// split 把参数分成交给 flag 包的选项和位置参数
func split(fs *flag.FlagSet, argv []string) (flags, positional []string, err error) {
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "--" {
			positional = append(positional, argv[i+1:]...)
			break
		}
		if !isFlag(arg) {
			positional = append(positional, arg)
			continue
		}

		flags = append(flags, arg)
		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") {
			continue
		}
		f := fs.Lookup(name)
		if f == nil || isBool(f) {
			// 未知选项交给 fs.Parse 报错
			continue
		}
		if i+1 >= len(argv) {
			return nil, nil, fmt.Errorf("%w: 选项 %s 缺少取值", ErrUsage, arg)
		}
		i++
		flags = append(flags, argv[i])
	}
	return flags, positional, nil
}

func isFlag(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	if _, err := strconv.ParseFloat(arg, 64); err == nil {
		return false
	}
	return true
}

func isBool(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// Usage 打印帮助信息
func Usage(w io.Writer) {
	fmt.Fprintln(w, "usage: seedmask [--floodfill] [--config FILE] [--annotate FILE] <infile> <outfile> <thres> <prompt...>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Detect objects matching the prompt and write a mask of centroid dots,")
	fmt.Fprintln(w, "or with --floodfill the shapes that contain a centroid.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "arguments:")
	fmt.Fprintln(w, "  infile      input image")
	fmt.Fprintln(w, "  outfile     output image, format chosen by extension")
	fmt.Fprintln(w, "  thres       detection confidence threshold in [0, 1]")
	fmt.Fprintln(w, "  prompt      one or more words describing the objects")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "options:")
	var a Args
	fs := newFlagSet(&a)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w, "  -h, --help\n    \tshow this help message and exit")
}
