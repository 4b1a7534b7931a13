package internal

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// FailureKind 资源下载失败的类别
type FailureKind string

const (
	FailNone         FailureKind = ""
	FailTimeout      FailureKind = "timeout"
	FailSizeExceeded FailureKind = "size_exceeded"
	FailFetch        FailureKind = "fetch_error"
)

var (
	errSizeExceeded = errors.New("asset exceeds size limit")
	errReadTimeout  = errors.New("read timeout")
)

// AssetResult 单个资源的下载结果
// LocalPath 为空时 Failure 说明原因
type AssetResult struct {
	LocalPath string
	Failure   FailureKind
	Attempts  int
	Err       error

	image *ImageFingerprint // 缓存命中时复用的图片指纹
}

// OK 是否下载成功
func (r AssetResult) OK() bool {
	return r.LocalPath != ""
}

// Fetcher 资源下载器
type Fetcher struct {
	baseURL   string
	outputDir string
	insecure  bool
	clients   map[time.Duration]*http.Client
	backoff   func(attempt int) time.Duration
	sleep     func(time.Duration)
}

// NewFetcher 创建下载器，相对地址按 baseURL 解析，文件写到 outputDir 下
func NewFetcher(baseURL, outputDir string) *Fetcher {
	return &Fetcher{
		baseURL:   baseURL,
		outputDir: outputDir,
		clients:   make(map[time.Duration]*http.Client),
		backoff:   linearBackoff,
		sleep:     time.Sleep,
	}
}

// SetInsecure 忽略 SSL 证书错误
func (f *Fetcher) SetInsecure(insecure bool) {
	f.insecure = insecure
	f.clients = make(map[time.Duration]*http.Client)
}

// linearBackoff 第 n 次超时后等待 n*2 秒
func linearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 2 * time.Second
}

// client 按超时时间缓存 client：连接超时 + 响应头超时
func (f *Fetcher) client(timeout time.Duration) *http.Client {
	if c, ok := f.clients[timeout]; ok {
		return c
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: f.insecure,
		},
	}
	c := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("重定向次数超过限制 (%d)", MaxRedirects)
			}
			return nil
		},
	}
	f.clients[timeout] = c
	return c
}

// MaxRedirects 最大重定向次数
const MaxRedirects = 5

// Fetch 下载单个资源到 mirrored_<kind>/<kind>_<index><ext>
// 超时类错误按 attempt*2 秒退避重试，总尝试次数不超过 MaxRetries；其他错误立即放弃
func (f *Fetcher) Fetch(ctx context.Context, remoteURL string, kind AssetKind, index int, b Budget) AssetResult {
	logger := GetLogger()
	if strings.TrimSpace(remoteURL) == "" {
		return AssetResult{Failure: FailFetch, Err: errors.New("empty url")}
	}

	fullURL, err := resolveURL(f.baseURL, remoteURL)
	if err != nil {
		return AssetResult{Failure: FailFetch, Err: fmt.Errorf("解析地址失败: %w", err)}
	}

	dir := assetDir(kind)
	if err := os.MkdirAll(filepath.Join(f.outputDir, dir), 0o755); err != nil {
		return AssetResult{Failure: FailFetch, Err: fmt.Errorf("创建目录失败: %w", err)}
	}
	name := fmt.Sprintf("%s_%d%s", kind, index, assetExt(fullURL, kind))
	localFile := filepath.Join(f.outputDir, dir, name)

	retries := b.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	logger.Debug("下载 %s: %s", strings.ToUpper(string(kind)), fullURL)
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		err := f.download(ctx, fullURL, localFile, b)
		if err == nil {
			rel := path.Join(dir, name)
			logger.Debug("%s 已保存到: %s", strings.ToUpper(string(kind)), rel)
			return AssetResult{LocalPath: rel, Attempts: attempt}
		}
		lastErr = err

		switch {
		case errors.Is(err, errSizeExceeded):
			logger.Warn("%s 超过大小限制 (%dMB): %s", strings.ToUpper(string(kind)), b.MaxBytes/1024/1024, fullURL)
			return AssetResult{Failure: FailSizeExceeded, Attempts: attempt, Err: err}
		case isTimeout(err) && ctx.Err() == nil:
			if attempt < retries {
				wait := f.backoff(attempt)
				logger.Warn("下载 %s 超时，%v 后重试（剩余 %d 次）: %s", kind, wait, retries-attempt, fullURL)
				f.sleep(wait)
				continue
			}
			logger.Warn("下载 %s 失败，已重试 %d 次: %v", kind, retries, err)
			return AssetResult{Failure: FailTimeout, Attempts: attempt, Err: err}
		default:
			logger.Warn("下载 %s 出错 %s: %v", kind, fullURL, err)
			return AssetResult{Failure: FailFetch, Attempts: attempt, Err: err}
		}
	}

	return AssetResult{Failure: FailTimeout, Attempts: retries, Err: lastErr}
}

// download 按 64KB 分块流式写入本地文件，任何失败都删除残留文件
func (f *Fetcher) download(ctx context.Context, fullURL, localFile string, b Budget) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Referer", f.baseURL)

	resp, err := f.client(b.Timeout).Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if b.MaxBytes > 0 && resp.ContentLength > b.MaxBytes {
		return errSizeExceeded
	}

	out, err := os.Create(localFile)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			os.Remove(localFile)
		}
	}()

	// 每次读之前重置计时器，单次读取超过 Timeout 视为超时
	idle := time.AfterFunc(b.Timeout, func() { cancel(errReadTimeout) })
	defer idle.Stop()

	buf := make([]byte, ChunkSize)
	var total int64
	for {
		idle.Reset(b.Timeout)
		n, rerr := io.ReadFull(resp.Body, buf)
		if n > 0 {
			total += int64(n)
			if b.MaxBytes > 0 && total > b.MaxBytes {
				return errSizeExceeded
			}
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("写入文件失败: %w", werr)
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			return nil
		}
		if rerr != nil {
			if errors.Is(context.Cause(ctx), errReadTimeout) {
				return fmt.Errorf("读取响应体: %w", errReadTimeout)
			}
			return fmt.Errorf("读取响应体失败: %w", rerr)
		}
	}
}

// ProbeTimeout 源站探测超时
const ProbeTimeout = 5 * time.Second

// Probe 探测源站连通性，只用于提前告警
// 与资源下载共用 transport 配置，-k 同样生效
func (f *Fetcher) Probe(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = ProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.client(timeout).Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, errReadTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// assetDir 资源类型到输出目录的固定映射
func assetDir(kind AssetKind) string {
	switch kind {
	case AssetCSS:
		return "mirrored_css"
	case AssetJS:
		return "mirrored_js"
	case AssetImage:
		return "mirrored_images"
	default:
		return "mirrored_" + string(kind)
	}
}

// assetExt 从 URL 路径取扩展名，取不到时用 .<kind>；css.php 这类动态 CSS 强制 .css
func assetExt(fullURL string, kind AssetKind) string {
	if kind == AssetCSS && strings.Contains(fullURL, "css.php") {
		return ".css"
	}
	ext := ""
	if u, err := url.Parse(fullURL); err == nil {
		ext = path.Ext(u.Path)
	}
	if ext == "" || ext == "." {
		return "." + string(kind)
	}
	return ext
}
