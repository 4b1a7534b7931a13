package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
)

// ArtifactError 必需产物写入失败，Run 以此作为唯一的致命错误
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("写入 %s 失败: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// WriteJSON 写入 JSON 文件
func WriteJSON(v interface{}, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &ArtifactError{Path: path, Err: fmt.Errorf("序列化 JSON 失败: %w", err)}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return &ArtifactError{Path: path, Err: fmt.Errorf("写入文件失败: %w", err)}
	}

	return nil
}

// WriteMirror 写入重建后的 HTML
// 序列化失败只记警告，写入空文档以保证产物存在
func WriteMirror(doc *Document, sk *Skeleton, path string) error {
	markup, err := sk.Render()
	if err != nil {
		doc.warn(WarnSerialization, -1, "HTML 序列化失败: %v", err)
		markup = "<!DOCTYPE html>\n<html lang=\"en\"><head><title>" + DefaultTitle + "</title></head><body></body></html>\n"
	}
	if err := os.WriteFile(path, []byte(markup), 0644); err != nil {
		return &ArtifactError{Path: path, Err: err}
	}
	return nil
}

// WriteMarkdown 把重建后的文档转为 Markdown，失败只记警告
func WriteMarkdown(doc *Document, sk *Skeleton, baseURL, path string) bool {
	md, err := htmltomarkdown.ConvertNode(sk.Root, converter.WithDomain(baseURL))
	if err != nil {
		doc.warn(WarnSerialization, -1, "Markdown 转换失败: %v", err)
		return false
	}
	if err := os.WriteFile(path, md, 0644); err != nil {
		doc.warn(WarnSerialization, -1, "写入 %s 失败: %v", filepath.Base(path), err)
		return false
	}
	return true
}

// WriteViews 写入两个 JSON 视图
func WriteViews(fv *FunctionalityView, vv *VisualView, outputDir string) error {
	if err := WriteJSON(fv, filepath.Join(outputDir, FunctionalityFile)); err != nil {
		return err
	}
	return WriteJSON(vv, filepath.Join(outputDir, VisualFile))
}
