package internal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadTokens 加载 token 文件
// 以 .json 结尾时按 [{"kind":..,"value":..}] 解析
// 否则按上游 tokenizer 的行对格式：一行类型，下一行值
func LoadTokens(path string) ([]Token, error) {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return loadJSONTokens(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开文件 %s: %w", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	// 内联脚本可能很长，放宽单行上限
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取文件时出错: %w", err)
	}

	return ParseTokenLines(lines), nil
}

// ParseTokenLines 把行对转换为 token 列表
// 无法识别的类型行、缺少值的末尾类型行都记录后跳过
func ParseTokenLines(lines []string) []Token {
	logger := GetLogger()
	tokens := make([]Token, 0, len(lines)/2)

	for i := 0; i < len(lines); i++ {
		kind := TokenKind(strings.TrimSpace(lines[i]))
		if kind == "" {
			continue
		}
		if !kind.valid() {
			logger.Warn("[%s] 第 %d 行: 未知的 token 类型 %q，跳过", WarnStreamFormat, i+1, lines[i])
			continue
		}
		if i+1 >= len(lines) {
			logger.Warn("[%s] 第 %d 行: token %s 缺少值", WarnStreamFormat, i+1, kind)
			break
		}
		tokens = append(tokens, Token{Kind: kind, Value: lines[i+1]})
		i++
	}

	return tokens
}

func loadJSONTokens(path string) ([]Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开文件 %s: %w", path, err)
	}

	var raw []Token
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析 JSON token 失败: %w", err)
	}

	tokens := raw[:0]
	for i, tok := range raw {
		if !tok.Kind.valid() {
			GetLogger().Warn("[%s] 第 %d 个 token: 未知类型 %q，跳过", WarnStreamFormat, i, tok.Kind)
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func (k TokenKind) valid() bool {
	switch k {
	case TokenTagOpen, TokenAttribute, TokenWord, TokenTagClose:
		return true
	}
	return false
}
