package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Run 主运行函数：加载 token 文件后执行完整的镜像流程
func Run(ctx context.Context, opts Options) (*Report, error) {
	logger := GetLogger()
	if opts.TokensPath == "" {
		return nil, fmt.Errorf("没有指定 token 文件")
	}

	tokens, err := LoadTokens(opts.TokensPath)
	if err != nil {
		return nil, fmt.Errorf("加载 token 失败 (%s): %w", opts.TokensPath, err)
	}
	logger.Info("加载完成，共 %d 个 token", len(tokens))

	return RunTokens(ctx, tokens, opts)
}

// RunTokens 对已加载的 token 流依次执行解析、分类、资源镜像、重建和汇总
// 只有必需产物（HTML 和两个 JSON）写入失败时才返回错误
func RunTokens(ctx context.Context, tokens []Token, opts Options) (*Report, error) {
	logger := GetLogger()
	opts.applyDefaults()

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, &ArtifactError{Path: opts.OutputDir, Err: err}
	}

	baseURL := ResolveBaseURL(opts.BaseURL, tokens)
	logger.Info("源站: %s", baseURL)

	fetcher := NewFetcher(baseURL, opts.OutputDir)
	fetcher.SetInsecure(opts.Insecure)

	if opts.Probe {
		if err := fetcher.Probe(ctx, ProbeTimeout); err != nil {
			logger.Warn("源站连通性检查失败，资源下载可能全部失败: %v", err)
		} else {
			logger.Info("源站可以访问")
		}
	}

	logger.Info("解析 token 流...")
	doc := Parse(tokens)
	logger.Info("解析完成：%d 个标签记录，%d 个属性，%d 个缓冲片段",
		len(doc.Tags), len(doc.Attributes), len(doc.Buffer))

	outcome := Classify(doc, ClassifyOptions{Disabled: opts.NoClassifier})
	logger.Info("分类完成：训练 %d 个，预测 %d 个", outcome.Trained, outcome.Predicted)

	stats := ResolveAssets(ctx, doc, fetcher, opts)

	report := &Report{
		BaseURL:       baseURL,
		Title:         doc.Title,
		TagCount:      len(doc.Tags),
		AssetsTotal:   stats.Total,
		AssetsFetched: stats.Fetched + stats.CacheHit,
		Classifier:    outcome,
	}

	logger.Info("重建 HTML...")
	sk := Reconstruct(doc, baseURL)
	mirrorPath := filepath.Join(opts.OutputDir, MirrorFile)
	if err := WriteMirror(doc, sk, mirrorPath); err != nil {
		return nil, err
	}
	report.Files = append(report.Files, MirrorFile)

	if opts.Markdown {
		if WriteMarkdown(doc, sk, baseURL, filepath.Join(opts.OutputDir, MarkdownFile)) {
			report.Files = append(report.Files, MarkdownFile)
		}
	}

	logger.Info("生成功能视图和视觉视图...")
	fv, vv := Aggregate(doc)
	if err := WriteViews(fv, vv, opts.OutputDir); err != nil {
		return nil, err
	}
	report.Files = append(report.Files, FunctionalityFile, VisualFile)

	if v, err := VerifyMirror(opts.OutputDir); err != nil {
		logger.Warn("检查镜像页面失败: %v", err)
	} else {
		report.Verification = v
		if !v.OK() {
			logger.Warn("镜像页面缺少 %d 个本地资源", len(v.MissingAssets))
		}
	}

	if opts.Preview {
		logger.Info("渲染镜像页面截图...")
		info, err := CapturePreview(ctx, mirrorPath, filepath.Join(opts.OutputDir, PreviewFile), opts.PreviewTimeout)
		if err != nil {
			logger.Warn("截图失败: %v", err)
		} else {
			report.Preview = info
			report.Files = append(report.Files, PreviewFile)
		}
	}

	report.Warnings = doc.Warnings
	logger.Info("完成！输出目录: %s", opts.OutputDir)
	return report, nil
}
