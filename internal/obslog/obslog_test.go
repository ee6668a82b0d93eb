package obslog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOptionsFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "LOG_FORMAT", "LOG_TO_CONSOLE", "LOG_TO_FILE", "LOG_FILE"} {
		t.Setenv(k, "")
	}
	o := OptionsFromEnv("openingq")
	if !o.Console || o.File != "" || o.Level != zapcore.InfoLevel {
		t.Fatalf("defaults: %+v", o)
	}

	t.Setenv("LOG_TO_FILE", "true")
	if o := OptionsFromEnv("trend-backend"); o.File != filepath.Join("logs", "trend-backend.log") {
		t.Fatalf("default file: %q", o.File)
	}
}

func TestInitFromEnvWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "app.log")
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FILE", path)
	defer SetLogger(nil)

	if err := InitFromEnv("openingq"); err != nil {
		t.Fatalf("InitFromEnv: %v", err)
	}
	L().Info("rotation_check")
	_ = L().Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(strings.SplitN(string(raw), "\n", 2)[0])
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	if entry["msg"] != "rotation_check" || entry["logger"] != "openingq" {
		t.Fatalf("entry: %v", entry)
	}
}
