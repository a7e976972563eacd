package ui

import (
	"fmt"
	"os"
)

type Logger struct {
	Debug bool
	Quiet bool
}

func NewLogger(debug, quiet bool) *Logger {
	return &Logger{Debug: debug, Quiet: quiet}
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.Debug && !l.Quiet {
		fmt.Printf("[DEBUG] "+format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	if !l.Quiet {
		fmt.Printf("[INFO] "+format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+format, args...)
}
