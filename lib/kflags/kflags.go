// Package kflags decouples flag definitions from the flag parsing library.
//
// Packages in this module expose a Flags struct with a Register method
// taking a kflags.FlagSet. The interface is the common subset of the
// standard library flag.FlagSet and spf13/pflag.FlagSet, so the same
// Register call works against either without the package taking a
// dependency on the parsing library the binary chose.
package kflags

import (
	"flag"
	"time"
)

type FlagSet interface {
	BoolVar(p *bool, name string, value bool, usage string)
	DurationVar(p *time.Duration, name string, value time.Duration, usage string)
	IntVar(p *int, name string, value int, usage string)
	StringVar(p *string, name string, value string, usage string)
}

var _ FlagSet = (*flag.FlagSet)(nil)
