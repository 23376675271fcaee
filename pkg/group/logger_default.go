package group

import (
	"fmt"
	"log"
	"os"
)

const (
	calldepth = 2
	lvlInfo   = "INFO"
	lvlWarn   = "WARN"
	lvlError  = "ERROR"
	lvlDebug  = "DEBUG"
	lvlFatal  = "FATAL"
)

func level(prefix, message string) string {
	return fmt.Sprintf("[%s]: %s", prefix, message)
}

// DefaultLogger is the dependency-free Logger used by tests and by any
// caller that does not want to wire in the zerolog-backed
// implementation. It mirrors the teacher's stdlib-log logger.
type DefaultLogger struct {
	*log.Logger
	debug bool
}

// NewDefaultLogger builds a DefaultLogger writing to stderr.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		Logger: log.New(os.Stderr, "grouptoolkit ", log.LstdFlags),
	}
}

func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	l.Output(calldepth, level(lvlInfo, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	l.Output(calldepth, level(lvlWarn, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	l.Output(calldepth, level(lvlError, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.Output(calldepth, level(lvlDebug, fmt.Sprintf(format, v...)))
	}
}

func (l *DefaultLogger) Fatalf(format string, v ...interface{}) {
	l.Output(calldepth, level(lvlFatal, fmt.Sprintf(format, v...)))
	os.Exit(1)
}

func (l *DefaultLogger) ToggleDebug(value bool) bool {
	l.debug = value
	return l.debug
}
