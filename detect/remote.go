package detect

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"
)

// RemoteDetector 通过 HTTP 调用外部推理服务 (例如包装了 ultralytics 的服务)
//
// 请求: POST {endpoint}/predict, multipart 字段 image(PNG), prompt, conf
// 响应: {"width": W, "height": H, "boxes": [{"x1":..,"y1":..,"x2":..,"y2":..,"score":..}]}
type RemoteDetector struct {
	client *resty.Client
}

type remoteBox struct {
	X1    float32 `json:"x1"`
	Y1    float32 `json:"y1"`
	X2    float32 `json:"x2"`
	Y2    float32 `json:"y2"`
	Score float32 `json:"score"`
}

type remoteResponse struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Boxes  []remoteBox `json:"boxes"`
}

type remoteError struct {
	Error string `json:"error"`
}

// NewRemoteDetector 创建远程检测器
//
// # Params:
//
//	endpoint: 服务地址, 例如 http://127.0.0.1:8000
//	timeout: 单次请求超时, <= 0 表示不限制
func NewRemoteDetector(endpoint string, timeout time.Duration) (*RemoteDetector, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("远程推理服务地址不能为空")
	}
	client := resty.New().
		SetBaseURL(endpoint).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &RemoteDetector{client: client}, nil
}

// Detect 上传图片并解析检测框
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image, prompt string, threshold float32) (*Result, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("编码图片失败: %w", err)
	}

	var out remoteResponse
	var apiErr remoteError
	resp, err := d.client.R().
		SetContext(ctx).
		SetFileReader("image", "image.png", bytes.NewReader(buf.Bytes())).
		SetFormData(map[string]string{
			"prompt": prompt,
			"conf":   strconv.FormatFloat(float64(threshold), 'f', -1, 32),
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("请求推理服务失败: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return nil, fmt.Errorf("推理服务返回 %d: %s", resp.StatusCode(), apiErr.Error)
		}
		return nil, fmt.Errorf("推理服务返回 %d", resp.StatusCode())
	}

	res := &Result{
		Width:  out.Width,
		Height: out.Height,
		Boxes:  make([]Box, 0, len(out.Boxes)),
	}
	if res.Width == 0 || res.Height == 0 {
		res.Width, res.Height = img.Bounds().Dx(), img.Bounds().Dy()
	}
	for _, b := range out.Boxes {
		res.Boxes = append(res.Boxes, Box(b))
	}
	res.Boxes = filterScore(res.Boxes, threshold)
	return res, nil
}

// Close 无需释放资源
func (d *RemoteDetector) Close() error {
	return nil
}
