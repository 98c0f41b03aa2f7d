package logger

import (
	"io"
)

// Tee forwards log messages to both primary and secondary loggers.
//
// Either logger may be nil. When both point at the same logger, messages
// are delivered once.
type Tee struct {
	Primary   Logger
	Secondary Logger
}

// NewTee returns a Logger that forwards to both loggers.
func NewTee(primary, secondary Logger) Logger {
	return &Tee{Primary: primary, Secondary: secondary}
}

func (t *Tee) Debugf(format string, args ...interface{}) {
	t.forward(func(log Logger) { log.Debugf(format, args...) })
}

func (t *Tee) Infof(format string, args ...interface{}) {
	t.forward(func(log Logger) { log.Infof(format, args...) })
}

func (t *Tee) Warnf(format string, args ...interface{}) {
	t.forward(func(log Logger) { log.Warnf(format, args...) })
}

func (t *Tee) Errorf(format string, args ...interface{}) {
	t.forward(func(log Logger) { log.Errorf(format, args...) })
}

func (t *Tee) SetOutput(writer io.Writer) {
	t.forward(func(log Logger) { log.SetOutput(writer) })
}

func (t *Tee) forward(fn func(Logger)) {
	if t.Primary != nil {
		fn(t.Primary)
	}
	if t.Secondary != nil && t.Secondary != t.Primary {
		fn(t.Secondary)
	}
}
