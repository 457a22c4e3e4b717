package apperr

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Sink receives failures that must not break a receipt: transport errors, unmatched
// methods and malformed instruction payloads.
type Sink interface {
	Report(ctx context.Context, kind string, err error)
}

type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Report(_ context.Context, kind string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrMethodUnmatched) {
		s.log.Warn("receipt degraded", zap.String("kind", kind), zap.Error(err))
		return
	}
	s.log.Error("receipt read failed", zap.String("kind", kind), zap.Error(err))
}

// Report sends err to sink under its Kind. A nil sink drops the report.
func Report(ctx context.Context, sink Sink, err error) {
	if sink == nil || err == nil {
		return
	}
	sink.Report(ctx, Kind(err), err)
}
