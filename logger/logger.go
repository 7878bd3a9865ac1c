package logger

import (
	"time"

	"github.com/cprobe/swordfish/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a no-op until Build runs.
var Logger = zap.NewNop().Sugar()

func Build() (func(), error) {
	c := config.Config.LogConfig

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.EncoderConfig.TimeKey = "ts"
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	loggerConfig.DisableStacktrace = true
	loggerConfig.DisableCaller = true

	switch c.Level {
	case "debug":
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case "fatal":
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.FatalLevel)
	default:
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	if c.Format == "console" {
		loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	loggerConfig.Encoding = c.Format
	loggerConfig.OutputPaths = []string{c.Output}
	loggerConfig.ErrorOutputPaths = []string{"stderr"}
	loggerConfig.InitialFields = c.Fields

	logger, err := loggerConfig.Build()
	if err != nil {
		return func() {}, err
	}

	Logger = logger.Sugar()

	return func() { _ = Logger.Sync() }, nil
}
