package platform

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"log/slog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "", want: slog.LevelInfo},
		{input: "info", want: slog.LevelInfo},
		{input: "debug", want: slog.LevelDebug},
		{input: "warn", want: slog.LevelWarn},
		{input: "warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "bad", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("expected %v, got %v for %q", tt.want, got, tt.input)
		}
	}
}

func TestParseLogFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    LogFormat
		wantErr bool
	}{
		{input: "", want: LogFormatText},
		{input: "text", want: LogFormatText},
		{input: "json", want: LogFormatJSON},
		{input: "bad", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLogFormat(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("expected %v, got %v for %q", tt.want, got, tt.input)
		}
	}
}

func TestLogOutputTeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "docprov.log")
	var console bytes.Buffer

	out, closer := LogOutput(&console, FileSink{Path: path, MaxSizeMB: 1})
	logger, err := ConfigureLogger("info", "json", out)
	if err != nil {
		t.Fatalf("ConfigureLogger returned error: %v", err)
	}
	logger.Info("collection provisioned", "namespace", "shop.goods")
	if err := closer.Close(); err != nil {
		t.Fatalf("close log file: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"namespace":"shop.goods"`) {
		t.Fatalf("unexpected log file contents %s", data)
	}
	if !strings.Contains(console.String(), "collection provisioned") {
		t.Fatalf("expected console output, got %s", console.String())
	}
}

func TestLogOutputWithoutFile(t *testing.T) {
	var console bytes.Buffer
	out, closer := LogOutput(&console, FileSink{})
	if out != &console {
		t.Fatalf("expected console writer unchanged")
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}
