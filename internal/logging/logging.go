package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/config"
)

// InitZap builds the process logger:
// - the console receives everything (Debug+);
// - the log file, if configured, receives only Error+;
// - with EnableSentry, Error+ entries are forwarded to Sentry.
func InitZap(cfg *config.LoggingConfig) (*zap.Logger, error) {
	if cfg.LogFile != "" {
		dir := filepath.Dir(cfg.LogFile)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
			}
		}
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		CallerKey:      "C",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var fileWS zapcore.WriteSyncer
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", cfg.LogFile, err)
		}
		fileWS = zapcore.AddSync(f)
	}

	consoleWS := zapcore.AddSync(os.Stdout)

	consoleLevel := zapcore.DebugLevel
	fileLevel := zapcore.ErrorLevel

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			consoleWS,
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool { return lvl >= consoleLevel }),
		),
	}
	if fileWS != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			fileWS,
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool { return lvl >= fileLevel }),
		))
	}

	logger := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(fileLevel),
	)

	if cfg.EnableSentry && cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			fmt.Fprintf(os.Stderr, "Sentry init failed: %v\n", err)
		} else {
			logger = logger.WithOptions(zap.Hooks(func(entry zapcore.Entry) error {
				if entry.Level >= zapcore.ErrorLevel {
					sentry.CaptureMessage(fmt.Sprintf("%s:%d: %s", entry.Caller.File, entry.Caller.Line, entry.Message))
					sentry.Flush(2 * time.Second)
				}
				return nil
			}))
		}
	}

	return logger, nil
}
