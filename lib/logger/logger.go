// Package logger defines the minimal logging surface shared by the rest of
// the module.
//
// Library code takes a Logger and defaults to Nil, so importing a package
// never produces output unless the caller asks for it. Binaries typically
// install a logrus instance, which satisfies Logger as is.
package logger

import (
	"io"
	"log"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	SetOutput(writer io.Writer)
}

// A logrus.Logger can be used anywhere a Logger is expected.
var _ Logger = (*logrus.Logger)(nil)

// Printer emits a single formatted log line.
type Printer func(format string, args ...interface{})

// DefaultLogger routes all levels to a single Printer.
type DefaultLogger struct {
	Printer Printer
}

func (dl *DefaultLogger) Debugf(format string, args ...interface{}) {
	dl.Printer(format, args...)
}

func (dl *DefaultLogger) Infof(format string, args ...interface{}) {
	dl.Printer(format, args...)
}

func (dl *DefaultLogger) Warnf(format string, args ...interface{}) {
	dl.Printer(format, args...)
}

func (dl *DefaultLogger) Errorf(format string, args ...interface{}) {
	dl.Printer(format, args...)
}

// SetOutput has no effect, the Printer owns its destination.
func (dl *DefaultLogger) SetOutput(writer io.Writer) {
}

// Go logs through the standard library logger.
var Go Logger = &DefaultLogger{Printer: log.Printf}

// Nil discards all messages.
var Nil Logger = &nilLogger{}

type nilLogger struct{}

func (nilLogger) Debugf(format string, args ...interface{}) {}
func (nilLogger) Infof(format string, args ...interface{})  {}
func (nilLogger) Warnf(format string, args ...interface{})  {}
func (nilLogger) Errorf(format string, args ...interface{}) {}
func (nilLogger) SetOutput(writer io.Writer)                {}
