// Package krequestlog logs the http traffic of a client as it happens.
//
// Wrap a transport with NewTransport and every request passing through
// it is logged, which helps when a scripted login misbehaves against the
// real servers. Credential carrying headers are redacted.
package krequestlog

import (
	"github.com/ironthree/fedora-go/lib/kflags"
	"github.com/ironthree/fedora-go/lib/logger"
)

type Flags struct {
	LogStart   bool
	LogEnd     bool
	LogHeaders bool
}

func DefaultFlags() *Flags {
	return &Flags{
		LogEnd: true,
	}
}

func (f *Flags) Register(set kflags.FlagSet, prefix string) *Flags {
	set.BoolVar(&f.LogStart, prefix+"log-start", f.LogStart, "Log requests as they are issued")
	set.BoolVar(&f.LogEnd, prefix+"log-end", f.LogEnd, "Log requests as they complete, with status and timing")
	set.BoolVar(&f.LogHeaders, prefix+"log-headers", f.LogHeaders, "Log request and response headers, with credentials redacted")
	return f
}

type Options struct {
	Log        logger.Logger
	LogStart   bool
	LogEnd     bool
	LogHeaders bool
	Printer    func(format string, args ...interface{})
}

type Modifier func(*Options)

func WithLogger(log logger.Logger) Modifier {
	return func(o *Options) {
		o.Log = log
		if o.Printer == nil {
			o.Printer = log.Infof
		}
	}
}

func WithPrinter(printer func(format string, args ...interface{})) Modifier {
	return func(o *Options) {
		o.Printer = printer
	}
}

func FromFlags(flags *Flags) Modifier {
	return func(o *Options) {
		if flags == nil {
			return
		}
		o.LogStart = flags.LogStart
		o.LogEnd = flags.LogEnd
		o.LogHeaders = flags.LogHeaders
	}
}

func NewOptions(mods ...Modifier) *Options {
	o := &Options{
		Log:    logger.Go,
		LogEnd: true,
	}
	for _, m := range mods {
		m(o)
	}
	if o.Printer == nil {
		o.Printer = o.Log.Infof
	}
	return o
}
