package audit

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapSink writes entries as structured JSON log lines.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("audit")}
}

func (s *ZapSink) LogEvent(e Entry) error {
	fields := make([]zap.Field, 0, 5+len(e.Fields))
	fields = append(fields,
		zap.String("kind", string(e.Kind)),
		zap.String("agent_id", e.AgentID),
		zap.String("order_id", e.OrderID),
		zap.Time("at", e.At),
	)
	if e.RoundID != "" {
		fields = append(fields, zap.String("round_id", e.RoundID))
	}
	for k, v := range e.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	s.logger.Info(e.Message, fields...)
	return nil
}

// Sync flushes buffered log output.
func (s *ZapSink) Sync() error { return s.logger.Sync() }

// NewFileLogger creates a JSON logger writing to logPath and, when console
// is set, to stdout as well.
func NewFileLogger(logPath string, console bool) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), zap.InfoLevel),
	}
	if console {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), zap.InfoLevel))
	}
	logger := zap.New(zapcore.NewTee(cores...))
	closeFn := func() error {
		_ = logger.Sync()
		return file.Close()
	}
	return logger, closeFn, nil
}
