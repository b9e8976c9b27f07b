package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New - 서비스 로거 생성 (development 는 콘솔 출력 + debug 레벨)
func New(development bool) zerolog.Logger {
	return NewWithWriter(development, os.Stdout)
}

// NewWithWriter - 출력 대상 지정
func NewWithWriter(development bool, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if development {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "face-fusion").
		Logger()

	if development {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}

	return logger
}
