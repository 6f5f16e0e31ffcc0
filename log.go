package landkeeper

import "go.uber.org/zap"

// NewProductionLogger builds a zap.Logger suitable for a running
// landkeeper process. Callers needing custom sinks or levels should
// build their own *zap.Logger and pass it to NewLandKeeper directly;
// this is only a convenience default.
func NewProductionLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// NewDevelopmentLogger builds a human-readable, unsampled logger for
// local development and tests.
func NewDevelopmentLogger() (*zap.Logger, error) {
	return zap.NewDevelopment()
}
