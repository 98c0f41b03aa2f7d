// Package factory builds a config.Opener from configuration flags.
//
// It lets command line tools pick where their stores live and in which
// format through standard flags, instead of wiring those decisions into
// every subcommand.
//
// Example:
//
//	flags := factory.DefaultFlags().Register(flagSet, "")
//	...
//	opener, err := factory.New(factory.FromFlags(flags))
//	if err != nil { ... }
//
//	store, err := opener("fedora", "profiles")
package factory

import (
	"fmt"

	"github.com/ironthree/fedora-go/lib/config"
	"github.com/ironthree/fedora-go/lib/config/directory"
	"github.com/ironthree/fedora-go/lib/config/marshal"
	"github.com/ironthree/fedora-go/lib/kflags"
)

const (
	// ModeSimple stores use a single fixed format.
	ModeSimple = "simple"
	// ModeMulti stores read any known format and write the preferred one.
	ModeMulti = "multi"
)

type Flags struct {
	// Path overrides the root directory holding the stores. Empty uses
	// the per user configuration directory.
	Path string
	// Mode selects the store implementation, "simple" or "multi".
	Mode string
	// Format pins the marshalling format for simple stores. Ignored for
	// multi stores.
	Format string
}

func DefaultFlags() *Flags {
	return &Flags{
		Mode: ModeMulti,
	}
}

func (f *Flags) Register(set kflags.FlagSet, prefix string) *Flags {
	set.StringVar(&f.Path, prefix+"config-store-path", f.Path, "Root directory for config stores. Empty uses the per user configuration directory.")
	set.StringVar(&f.Mode, prefix+"config-store-mode", f.Mode, "Config store implementation, simple or multi.")
	set.StringVar(&f.Format, prefix+"config-store-format", f.Format, "Format for simple config stores: toml, json, yaml or gob.")
	return f
}

type Options struct {
	Flags *Flags
}

type Modifier func(*Options)

// FromFlags configures the factory from a Flags struct.
func FromFlags(flags *Flags) Modifier {
	return func(o *Options) {
		if flags != nil {
			o.Flags = flags
		}
	}
}

// WithPath overrides the root directory holding the stores.
func WithPath(path string) Modifier {
	return func(o *Options) {
		o.Flags.Path = path
	}
}

// WithSimple selects single format stores using the named format.
func WithSimple(format string) Modifier {
	return func(o *Options) {
		o.Flags.Mode = ModeSimple
		o.Flags.Format = format
	}
}

// WithMulti selects stores accepting any known format.
func WithMulti() Modifier {
	return func(o *Options) {
		o.Flags.Mode = ModeMulti
		o.Flags.Format = ""
	}
}

// New creates a config.Opener based on the provided modifiers.
//
// The configuration is validated here, so an Opener that is handed out
// does not fail later for avoidable reasons.
func New(mods ...Modifier) (config.Opener, error) {
	opts := &Options{Flags: DefaultFlags()}
	for _, m := range mods {
		m(opts)
	}
	flags := opts.Flags

	var marshaller marshal.FileMarshaller
	switch flags.Mode {
	case ModeMulti:
		if flags.Format != "" {
			return nil, fmt.Errorf("config store format %q is only valid for simple stores", flags.Format)
		}
	case "", ModeSimple:
		format := flags.Format
		if format == "" {
			format = marshal.Toml.Extension()
		}
		var err error
		marshaller, err = marshal.ByExtension(format)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown config store mode %q", flags.Mode)
	}

	return func(name string, namespace ...string) (config.Store, error) {
		var loader directory.Dir
		var err error
		if flags.Path != "" {
			loader, err = directory.OpenDir(flags.Path, append([]string{name}, namespace...)...)
		} else {
			loader, err = directory.OpenHomeDir(name, namespace...)
		}
		if err != nil {
			return nil, err
		}
		if marshaller != nil {
			return config.NewSimple(loader, marshaller), nil
		}
		return config.NewMulti(loader), nil
	}, nil
}
