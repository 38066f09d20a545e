package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"warning", logrus.WarnLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"critical", logrus.FatalLevel},
		{"", logrus.InfoLevel},
		{"nonsense", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetupWritesLogFile(t *testing.T) {
	dir := t.TempDir()

	cleanup, err := Setup(Config{
		Level:      "info",
		Format:     "json",
		AppName:    "restorm-test",
		FileEnable: true,
		LogsDir:    dir,
		MaxSizeMB:  1,
	})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	Info("hello %s", "file")
	Debug("hidden")

	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "restorm-test.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "hello file") {
		t.Errorf("log file missing info message: %s", content)
	}
	if strings.Contains(content, "hidden") {
		t.Errorf("debug message written at info level: %s", content)
	}
}

func TestSuccessAddsStatusField(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Setup(Config{Level: "info", Format: "json"}); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	Success("created task %s", "tas1_abc")

	if !strings.Contains(buf.String(), `"status":"success"`) {
		t.Errorf("expected status field, got %s", buf.String())
	}
}
