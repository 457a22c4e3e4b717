package logger

import (
	"go.uber.org/zap"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

// New returns a development logger for local and dev, a production JSON logger otherwise.
func New(env string) (*zap.Logger, error) {
	switch env {
	case envLocal, envDev:
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
