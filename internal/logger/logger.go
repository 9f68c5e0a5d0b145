package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New создает zap.Logger по уровню и формату вывода.
// Неизвестный уровень деградирует до info, неизвестный формат — до json.
func New(level, encoding string) (*zap.Logger, error) {
	atomicLevel := zap.NewAtomicLevel()
	logLevel := strings.ToLower(level)
	if logLevel == "" {
		logLevel = "info"
	}
	if err := atomicLevel.UnmarshalText([]byte(logLevel)); err != nil {
		// Логгер еще не собран, пишем в stderr
		fmt.Fprintf(os.Stderr, "Invalid log level '%s', using 'info'. Error: %v\n", level, err)
		atomicLevel.SetLevel(zap.InfoLevel)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	enc := strings.ToLower(encoding)
	if enc != "console" && enc != "json" {
		enc = "json"
	}

	zapConfig := zap.Config{
		Level:             atomicLevel,
		Development:       false,
		DisableCaller:     true, // Информация о вызывающем не нужна, экономим на каждом сообщении
		DisableStacktrace: true,
		Encoding:          enc,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}
