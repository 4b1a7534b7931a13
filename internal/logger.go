package internal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger 日志接口
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Progress(current, total int, stage string)
}

// SimpleLogger 写 stderr 的简单日志实现
type SimpleLogger struct {
	mu    sync.Mutex
	out   io.Writer
	debug bool
	quiet bool
}

// NewSimpleLogger 创建日志器，debug 为 true 时输出 DEBUG 级别
func NewSimpleLogger(debug bool) *SimpleLogger {
	return &SimpleLogger{out: os.Stderr, debug: debug}
}

// NewWriterLogger 输出到指定 writer（测试里用来收集日志）
func NewWriterLogger(w io.Writer, debug bool) *SimpleLogger {
	return &SimpleLogger{out: w, debug: debug, quiet: true}
}

func (l *SimpleLogger) log(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("15:04:05")
	fmt.Fprintf(l.out, "[%s] [%s] %s\n", timestamp, level, msg)
}

func (l *SimpleLogger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.log("DEBUG", format, args...)
}

func (l *SimpleLogger) Info(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

func (l *SimpleLogger) Warn(format string, args ...interface{}) {
	l.log("WARN", format, args...)
}

func (l *SimpleLogger) Error(format string, args ...interface{}) {
	l.log("ERROR", format, args...)
}

// Progress 进度条，quiet 模式下不输出
func (l *SimpleLogger) Progress(current, total int, stage string) {
	if l.quiet {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	percent := 0.0
	if total > 0 {
		percent = float64(current) / float64(total) * 100
	}
	fmt.Fprintf(l.out, "\r[进度] %s: %d/%d (%.1f%%)", stage, current, total, percent)
	if current >= total {
		fmt.Fprintf(l.out, "\n")
	}
}

// NopLogger 丢弃所有输出
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Progress(int, int, string)    {}

// 全局日志实例
var defaultLogger Logger = NewSimpleLogger(false)

// SetLogger 设置全局日志器
func SetLogger(logger Logger) {
	defaultLogger = logger
}

// GetLogger 获取全局日志器
func GetLogger() Logger {
	return defaultLogger
}
