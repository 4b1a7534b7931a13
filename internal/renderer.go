package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// PreviewInfo 镜像页面截图信息
type PreviewInfo struct {
	Path        string            `json:"path"`
	Fingerprint *ImageFingerprint `json:"fingerprint,omitempty"`
}

// Renderer headless Chrome 渲染器，只加载本地镜像文件
type Renderer struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	timeout       time.Duration
}

// NewRenderer 启动浏览器
func NewRenderer(parentCtx context.Context, timeout time.Duration) (*Renderer, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("allow-file-access-from-files", true),
		chromedp.WindowSize(1280, 800),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, opts...)

	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	return &Renderer{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		timeout:       timeout,
	}, nil
}

// Close 关闭渲染器
func (r *Renderer) Close() {
	if r.browserCancel != nil {
		r.browserCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
}

// Screenshot 打开本地 HTML 文件并截取首屏
func (r *Renderer) Screenshot(ctx context.Context, htmlPath string) ([]byte, error) {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return nil, err
	}

	pageCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	// pageCtx 超时后同步取消 tab
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-pageCtx.Done():
			cancelTab()
		case <-tabCtx.Done():
		}
	}()

	var buf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("file://"+filepath.ToSlash(abs)),
		chromedp.WaitReady("body"),
		chromedp.WaitVisible("div.mirror-container", chromedp.ByQuery),
		chromedp.CaptureScreenshot(&buf),
	)
	cancelTab()
	<-done

	if err != nil {
		return nil, fmt.Errorf("渲染镜像页面失败: %w", err)
	}
	return buf, nil
}

// CapturePreview 渲染 htmlPath 并把截图写到 pngPath，附带截图的感知哈希
func CapturePreview(ctx context.Context, htmlPath, pngPath string, timeout time.Duration) (*PreviewInfo, error) {
	r, err := NewRenderer(ctx, timeout)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	shot, err := r.Screenshot(ctx, htmlPath)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(pngPath, shot, 0644); err != nil {
		return nil, fmt.Errorf("写入截图失败: %w", err)
	}

	info := &PreviewInfo{Path: filepath.Base(pngPath)}
	if fp, err := fingerprintBytes(shot); err == nil {
		info.Fingerprint = fp
	} else {
		GetLogger().Debug("截图指纹计算失败: %v", err)
	}
	return info, nil
}
