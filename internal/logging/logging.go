package logging

import (
	"strings"

	"go.uber.org/zap"
)

// New builds the application logger. DEBUG gets the human-readable
// development config, everything else the production JSON config.
func New(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "DEBUG") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
