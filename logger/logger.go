package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Logger 全局日志实例
	Logger *logrus.Logger
	// ErrorLogger 错误日志实例
	ErrorLogger *logrus.Logger
)

// LogConfig 日志配置
type LogConfig struct {
	ErrorLogPath string
	InfoLogPath  string
	LogLevel     string
}

// CustomFormatter 单行格式: [时间] [级别] (调用者) 消息 字段
type CustomFormatter struct {
	TimestampFormat string
}

// Format 实现 logrus.Formatter 接口
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%s] (%s) %s", timestamp, level, getCaller(), entry.Message)
	for k, v := range entry.Data {
		fmt.Fprintf(&sb, " %s=%v", k, v)
	}
	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

// getCaller 跳过日志框架自身的栈帧
func getCaller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "sirupsen") || strings.HasSuffix(file, "logger/logger.go") {
			continue
		}
		funcName := runtime.FuncForPC(pc).Name()
		if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
			funcName = funcName[idx+1:]
		}
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), funcName, line)
	}
	return "unknown:unknown:0"
}

// parseLogLevel 解析日志级别字符串
func parseLogLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// InitLogger 初始化日志
func InitLogger(config LogConfig) error {
	formatter := &CustomFormatter{TimestampFormat: "15:04:05 MST 2006/01/02"}
	level := parseLogLevel(config.LogLevel)

	Logger = logrus.New()
	Logger.SetFormatter(formatter)
	Logger.SetLevel(level)

	ErrorLogger = logrus.New()
	ErrorLogger.SetFormatter(formatter)
	ErrorLogger.SetLevel(level)

	if config.InfoLogPath != "" {
		f, err := openLogFile(config.InfoLogPath)
		if err != nil {
			Logger.SetOutput(os.Stdout)
			Logger.Warnf("Failed to open info log file %s, fallback to stdout: %v", config.InfoLogPath, err)
		} else {
			Logger.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	} else {
		Logger.SetOutput(os.Stdout)
	}

	if config.ErrorLogPath != "" {
		f, err := openLogFile(config.ErrorLogPath)
		if err != nil {
			ErrorLogger.SetOutput(os.Stderr)
			ErrorLogger.Warnf("Failed to open error log file %s, fallback to stderr: %v", config.ErrorLogPath, err)
		} else {
			ErrorLogger.SetOutput(io.MultiWriter(os.Stderr, f))
		}
	} else {
		ErrorLogger.SetOutput(os.Stderr)
	}
	return nil
}

// SetOutput 重定向全部日志输出，测试中使用
func SetOutput(w io.Writer) {
	if Logger == nil {
		_ = InitLogger(LogConfig{})
	}
	Logger.SetOutput(w)
	ErrorLogger.SetOutput(w)
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// WithFields 返回带字段的日志条目，未初始化时返回丢弃输出的条目
func WithFields(fields map[string]interface{}) *logrus.Entry {
	if Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return logrus.NewEntry(l)
	}
	return Logger.WithFields(logrus.Fields(fields))
}

func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Infof(format, args...)
	}
}

func Info(args ...interface{}) {
	if Logger != nil {
		Logger.Info(args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Errorf(format, args...)
	}
}

func Fatalf(format string, args ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Fatalf(format, args...)
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
