package group

// Logger is the logging surface every protocol layer is given at
// construction. Implementations are expected to be safe for
// concurrent use, since layer entry points are called from arbitrary
// goroutines.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Fatalf(format string, v ...interface{})

	// ToggleDebug turns debug-level output on or off and returns the
	// new state.
	ToggleDebug(value bool) bool
}
