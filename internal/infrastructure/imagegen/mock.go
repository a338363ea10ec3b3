package imagegen

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// MockGenerator 返回固定 1x1 PNG 的生成器，用于本地开发与测试
type MockGenerator struct {
	mu       sync.Mutex
	requests []*Request
	err      error
}

var mockPNG = func() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}()

// NewMockGenerator 创建 mock 生成器
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// ModelID 模型标识
func (g *MockGenerator) ModelID() string {
	return "mock-1x1"
}

// Name 提供方名称
func (g *MockGenerator) Name() string {
	return "mock"
}

// FailWith 之后的调用都返回 err，传 nil 恢复
func (g *MockGenerator) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Requests 已收到的请求
func (g *MockGenerator) Requests() []*Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Request, len(g.requests))
	copy(out, g.requests)
	return out
}

// Generate 记录请求并返回固定图像
func (g *MockGenerator) Generate(ctx context.Context, req *Request) (*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := make([]byte, len(mockPNG))
	copy(img, mockPNG)
	return &Result{Image: img, Seed: req.Seed, MimeType: "image/png"}, nil
}
