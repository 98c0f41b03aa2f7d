// Package trace logs the operations performed on a config store.
//
// Wrapping is cheap and off by default, so binaries can register the
// flags unconditionally and only pay for tracing when a user debugging
// a config problem turns it on:
//
//	tf := trace.DefaultFlags().Register(set, "")
//	store = trace.New(trace.FromFlags(tf), trace.WithLogger(log)).WrapStore("fedora/cookies", store)
package trace

import (
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/ironthree/fedora-go/lib/config"
	"github.com/ironthree/fedora-go/lib/kflags"
	"github.com/ironthree/fedora-go/lib/logger"
)

// Flags holds the command line flags controlling store tracing.
type Flags struct {
	Enabled      bool
	LogResponses bool
	Include      string
	Exclude      string
}

// DefaultFlags returns the default Flags, with tracing off.
func DefaultFlags() *Flags {
	return &Flags{}
}

// Register adds the tracing flags to set, each name prepended with prefix.
func (f *Flags) Register(set kflags.FlagSet, prefix string) *Flags {
	set.BoolVar(&f.Enabled, prefix+"config-store-trace", f.Enabled, "Log every config store operation.")
	set.BoolVar(&f.LogResponses, prefix+"config-store-trace-responses", f.LogResponses, "Also log the values config store operations read and write.")
	set.StringVar(&f.Include, prefix+"config-store-trace-include", f.Include, "Comma separated prefixes of store names to trace. Empty traces all.")
	set.StringVar(&f.Exclude, prefix+"config-store-trace-exclude", f.Exclude, "Comma separated prefixes of store names to leave untraced.")
	return f
}

// Options controls which stores a Tracer wraps and where it logs.
type Options struct {
	Log          logger.Logger
	Enabled      bool
	LogResponses bool
	Include      []string
	Exclude      []string
}

// Modifier adjusts Options.
type Modifier func(*Options)

// WithLogger directs trace output to log.
func WithLogger(log logger.Logger) Modifier {
	return func(o *Options) {
		o.Log = log
	}
}

// FromFlags configures the tracer from command line flags.
func FromFlags(flags *Flags) Modifier {
	return func(o *Options) {
		if flags == nil {
			return
		}
		o.Enabled = flags.Enabled
		o.LogResponses = flags.LogResponses
		o.Include = splitPrefixes(flags.Include)
		o.Exclude = splitPrefixes(flags.Exclude)
	}
}

// WithEnabled turns tracing on or off regardless of flags.
func WithEnabled(enabled bool) Modifier {
	return func(o *Options) {
		o.Enabled = enabled
	}
}

// WithLogResponses also logs the values operations read and write.
func WithLogResponses(enabled bool) Modifier {
	return func(o *Options) {
		o.LogResponses = enabled
	}
}

// WithInclude restricts tracing to stores matching one of the prefixes.
func WithInclude(include []string) Modifier {
	return func(o *Options) {
		o.Include = append([]string(nil), include...)
	}
}

// WithExclude keeps stores matching one of the prefixes untraced.
func WithExclude(exclude []string) Modifier {
	return func(o *Options) {
		o.Exclude = append([]string(nil), exclude...)
	}
}

// Tracer decides which stores get wrapped, and with which logger.
type Tracer struct {
	opts Options
}

// New creates a Tracer from the provided modifiers.
func New(mods ...Modifier) *Tracer {
	t := &Tracer{opts: Options{Log: logger.Go}}
	for _, m := range mods {
		m(&t.opts)
	}
	if t.opts.Log == nil {
		t.opts.Log = logger.Go
	}
	return t
}

// WrapOpener wraps every store handed out by opener. Stores are named
// after the app and namespace they were opened for, joined with
// slashes, which is what the include and exclude prefixes match
// against.
func (t *Tracer) WrapOpener(opener config.Opener) config.Opener {
	if opener == nil {
		return nil
	}
	return func(app string, parts ...string) (config.Store, error) {
		store, err := opener(app, parts...)
		if err != nil {
			return nil, err
		}
		return t.WrapStore(path.Join(append([]string{app}, parts...)...), store), nil
	}
}

// WrapStore returns store wrapped with tracing, or store itself if
// tracing is off or name is filtered out.
func (t *Tracer) WrapStore(name string, store config.Store) config.Store {
	if store == nil || !t.selected(name) {
		return store
	}
	return &tracedStore{
		name:      name,
		store:     store,
		log:       t.opts.Log,
		responses: t.opts.LogResponses,
	}
}

func (t *Tracer) selected(name string) bool {
	if !t.opts.Enabled && !t.opts.LogResponses {
		return false
	}
	if matchesAny(name, t.opts.Exclude) {
		return false
	}
	return len(t.opts.Include) == 0 || matchesAny(name, t.opts.Include)
}

func matchesAny(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

type tracedStore struct {
	name      string
	store     config.Store
	log       logger.Logger
	responses bool
}

func (s *tracedStore) emit(format string, args ...interface{}) {
	s.log.Infof("config store %s: %s", s.name, fmt.Sprintf(format, args...))
}

func (s *tracedStore) List() ([]config.Descriptor, error) {
	s.emit("List()")
	descs, err := s.store.List()
	switch {
	case err != nil:
		s.emit("List() error: %v", err)
	case s.responses:
		s.emit("List() -> %v", descs)
	}
	return descs, err
}

func (s *tracedStore) Marshal(desc config.Descriptor, value interface{}) error {
	s.emit("Marshal(%v)", desc)
	if s.responses {
		s.emit("Marshal(%v) value=%s", desc, formatValue(value))
	}
	if err := s.store.Marshal(desc, value); err != nil {
		s.emit("Marshal(%v) error: %v", desc, err)
		return err
	}
	return nil
}

func (s *tracedStore) Unmarshal(desc config.Descriptor, value interface{}) (config.Descriptor, error) {
	s.emit("Unmarshal(%v)", desc)
	found, err := s.store.Unmarshal(desc, value)
	switch {
	case err != nil:
		s.emit("Unmarshal(%v) error: %v", desc, err)
	case s.responses:
		s.emit("Unmarshal(%v) -> %s", desc, formatValue(value))
	}
	return found, err
}

func (s *tracedStore) Delete(desc config.Descriptor) error {
	s.emit("Delete(%v)", desc)
	if err := s.store.Delete(desc); err != nil {
		s.emit("Delete(%v) error: %v", desc, err)
		return err
	}
	return nil
}

// formatValue renders the pointed-to value rather than the pointer,
// since stores are almost always handed a pointer.
func formatValue(value interface{}) string {
	if value == nil {
		return "<nil>"
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "<nil>"
		}
		return fmt.Sprintf("%+v", rv.Elem().Interface())
	}
	return fmt.Sprintf("%+v", value)
}

func splitPrefixes(list string) []string {
	var prefixes []string
	for _, prefix := range strings.Split(list, ",") {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			prefixes = append(prefixes, prefix)
		}
	}
	return prefixes
}
