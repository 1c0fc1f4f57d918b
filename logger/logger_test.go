package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, logrus.TraceLevel, parseLogLevel("trace"))
	assert.Equal(t, logrus.InfoLevel, parseLogLevel("verbose"))
}

func TestFormatter(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{LogLevel: "debug"}))
	var buf bytes.Buffer
	SetOutput(&buf)

	Debugf("fetched %d rows", 3)
	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "["))
	assert.Contains(t, line, "[DEBU]")
	assert.Contains(t, line, "logger_test.go")
	assert.Contains(t, line, "fetched 3 rows")

	buf.Reset()
	WithFields(map[string]interface{}{"session": "s1"}).Info("closed")
	assert.Contains(t, buf.String(), "session=s1")

	buf.Reset()
	Errorf("boom")
	assert.Contains(t, buf.String(), "[ERRO]")
}

func TestLevelFilter(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{LogLevel: "warn"}))
	var buf bytes.Buffer
	SetOutput(&buf)
	Infof("hidden")
	Debugf("hidden")
	assert.Empty(t, buf.String())
	Warnf("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogFiles(t *testing.T) {
	dir := t.TempDir()
	info := filepath.Join(dir, "logs", "driver.log")
	require.NoError(t, InitLogger(LogConfig{InfoLogPath: info, LogLevel: "info"}))
	Info("to file")
	data, err := os.ReadFile(info)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
