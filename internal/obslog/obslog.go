package obslog

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var globalLogger = zap.NewNop()

// L returns the process logger. It is a no-op until InitFromEnv or SetLogger.
func L() *zap.Logger { return globalLogger }

// SetLogger replaces the process logger; nil resets it to a no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	globalLogger = l
}

// Options describes where the form server and trend back end write logs.
type Options struct {
	Service string
	Level   zapcore.Level
	// Format is "console", "json" or "legacy" (pipe-separated, with caller).
	Format  string
	Console bool
	// File enables rotated file output when non-empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Caller     bool
}

// OptionsFromEnv reads LOG_* variables. File output is off unless LOG_TO_FILE
// is set, since both binaries normally run under a supervisor that collects
// stdout.
func OptionsFromEnv(service string) Options {
	o := Options{
		Service:    service,
		Level:      parseLevel(os.Getenv("LOG_LEVEL")),
		Format:     strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
		Console:    envBool("LOG_TO_CONSOLE", true),
		MaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 50),
		MaxBackups: envInt("LOG_MAX_BACKUPS", 5),
		MaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 14),
		Compress:   envBool("LOG_COMPRESS", false),
		Caller:     envBool("LOG_CALLER", false),
	}
	if envBool("LOG_TO_FILE", false) {
		o.File = strings.TrimSpace(os.Getenv("LOG_FILE"))
		if o.File == "" {
			o.File = filepath.Join("logs", service+".log")
		}
	}
	return o
}

// InitFromEnv builds the process logger for service from LOG_* variables.
func InitFromEnv(service string) error {
	l, err := New(OptionsFromEnv(service))
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// New builds a logger from o. With no sink enabled it falls back to stdout.
func New(o Options) (*zap.Logger, error) {
	newEncoder, ok := encoders[o.Format]
	if !ok {
		o.Format = "console"
		newEncoder = encoders["console"]
	}

	var cores []zapcore.Core
	if o.Console || o.File == "" {
		cores = append(cores, zapcore.NewCore(newEncoder(), zapcore.AddSync(os.Stdout), o.Level))
	}
	if o.File != "" {
		if err := os.MkdirAll(filepath.Dir(o.File), 0o755); err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
			Compress:   o.Compress,
		}
		cores = append(cores, zapcore.NewCore(newEncoder(), zapcore.AddSync(rotator), o.Level))
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if o.Caller || o.Format == "legacy" {
		opts = append(opts, zap.AddCaller())
	}
	l := zap.New(zapcore.NewTee(cores...), opts...)
	if o.Service != "" {
		l = l.Named(o.Service)
	}
	return l, nil
}

var encoders = map[string]func() zapcore.Encoder{
	"console": func() zapcore.Encoder {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	},
	"json": func() zapcore.Encoder {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	},
	"legacy": func() zapcore.Encoder {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.ConsoleSeparator = " | "
		return zapcore.NewConsoleEncoder(cfg)
	},
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func envBool(k string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
