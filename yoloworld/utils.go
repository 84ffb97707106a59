package yoloworld

import (
	"fmt"
	"image"
	"sort"

	"github.com/up-zero/gotool/imageutil"
	ort "github.com/getcharzp/onnxruntime_purego"
)

// padValue letterbox 填充灰度 (114/255)
const padValue = float32(114.0 / 255.0)

// preprocess 预处理, 等比缩放到 inputSize 并在右下方填充
//
// 张量直接引用返回的 data, 推理结束前调用方必须保持 data 可达.
func preprocess(img image.Image, inputSize int) (*ort.Value, []float32, Params, error) {
	bounds := img.Bounds()
	params := Params{
		OrigW: bounds.Dx(),
		OrigH: bounds.Dy(),
	}

	scale := float32(inputSize) / float32(max(params.OrigW, params.OrigH))
	params.ScaleX, params.ScaleY = scale, scale

	newW := max(1, int(float32(params.OrigW)*scale))
	newH := max(1, int(float32(params.OrigH)*scale))

	resized := imageutil.Resize(img, newW, newH)
	rb := resized.Bounds()

	// 准备 Tensor 数据 (CHW + Normalize 0-1)
	plane := inputSize * inputSize
	data := make([]float32, 3*plane)
	for i := range data {
		data[i] = padValue
	}
	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			r, g, b, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()

			idx := y*inputSize + x
			data[idx] = float32(r) / 65535.0         // R
			data[plane+idx] = float32(g) / 65535.0   // G
			data[2*plane+idx] = float32(b) / 65535.0 // B
		}
	}

	tensor, err := ort.NewTensor([]int64{1, 3, int64(inputSize), int64(inputSize)}, data)
	return tensor, data, params, err
}

// Decode 解析 [1, 4+nc, anchors] 形状的输出, 只对 classID 对应的一列打分
//
// # Params:
//
//	data: 输出数据
//	shape: 输出形状
//	classID: 类别序号
//	conf: 置信度阈值, 保留 score >= conf 的框
//	iou: NMS IOU 阈值
//	maxDet: 最多保留的框数, <= 0 表示不限制
//	params: 缩放参数
func Decode(data []float32, shape []int64, classID int, conf, iou float32, maxDet int, params Params) ([]DetResult, error) {
	if len(shape) != 3 {
		return nil, fmt.Errorf("输出形状 %v 不是 [1, 4+nc, anchors]", shape)
	}
	channels, anchors := int(shape[1]), int(shape[2])
	if channels < 5 {
		return nil, fmt.Errorf("输出通道数(%d)过少", channels)
	}
	if classID < 0 || classID >= channels-4 {
		return nil, fmt.Errorf("类别序号 %d 超出范围 [0, %d)", classID, channels-4)
	}
	if len(data) < channels*anchors {
		return nil, fmt.Errorf("输出数据长度(%d)与形状 %v 不匹配", len(data), shape)
	}

	cands := parseCandidates(data, anchors, classID, conf, params)
	keep := nms(cands, iou)
	if maxDet > 0 && len(keep) > maxDet {
		keep = keep[:maxDet]
	}

	results := make([]DetResult, 0, len(keep))
	for _, idx := range keep {
		c := cands[idx]
		results = append(results, DetResult{
			ClassID: classID,
			Score:   c.score,
			X1:      c.box[0],
			Y1:      c.box[1],
			X2:      c.box[2],
			Y2:      c.box[3],
		})
	}
	return results, nil
}

// parseCandidates 解析候选框并映射回原图
func parseCandidates(data []float32, anchors, classID int, conf float32, params Params) []candidate {
	var cands []candidate

	row := (4 + classID) * anchors
	for i := 0; i < anchors; i++ {
		score := data[row+i]
		if score < conf {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		x1 := clip((cx-w/2)/params.ScaleX, float32(params.OrigW))
		y1 := clip((cy-h/2)/params.ScaleY, float32(params.OrigH))
		x2 := clip((cx+w/2)/params.ScaleX, float32(params.OrigW))
		y2 := clip((cy+h/2)/params.ScaleY, float32(params.OrigH))

		cands = append(cands, candidate{
			box:   [4]float32{x1, y1, x2, y2},
			score: score,
		})
	}
	return cands
}

func clip(v, hi float32) float32 {
	return min(max(v, 0), hi)
}

// nms 非极大值抑制，过滤掉重叠度过高的检测框
//
// # Params:
//
//	cands: 候选框, 调用后按分数降序排列
//	iouThresh: IOU 阈值
func nms(cands []candidate, iouThresh float32) []int {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	keep := make([]int, 0)
	suppressed := make([]bool, len(cands))

	for i := 0; i < len(cands); i++ {
		if suppressed[i] {
			continue
		}
		keep = append(keep, i)

		for j := i + 1; j < len(cands); j++ {
			if suppressed[j] {
				continue
			}
			if computeIOU(cands[i].box, cands[j].box) > iouThresh {
				suppressed[j] = true
			}
		}
	}
	return keep
}

func computeIOU(a, b [4]float32) float32 {
	ix1, iy1 := max(a[0], b[0]), max(a[1], b[1])
	ix2, iy2 := min(a[2], b[2]), min(a[3], b[3])
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0.0
	}

	inter := (ix2 - ix1) * (iy2 - iy1)
	area1 := (a[2] - a[0]) * (a[3] - a[1])
	area2 := (b[2] - b[0]) * (b[3] - b[1])

	return inter / (area1 + area2 - inter)
}
