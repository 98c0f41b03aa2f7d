package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ironthree/fedora-go/lib/config/marshal"
	"github.com/ironthree/fedora-go/lib/multierror"
)

// MultiFormat is a Store that accepts values in any of a set of file
// formats. A plain Key is written in the first configured format and
// read back from whichever format is found first, while a descriptor
// from FormatKey or List pins one format down.
//
// This is what lets a user keep hand written profile.json files next to
// the profile.toml files the tools write.
type MultiFormat struct {
	loader     Loader
	marshaller []marshal.FileMarshaller
}

// NewMulti creates a MultiFormat on top of loader. With no marshallers,
// all the formats in marshal.Known are accepted, preferring the first.
func NewMulti(loader Loader, marshaller ...marshal.FileMarshaller) *MultiFormat {
	if len(marshaller) <= 0 {
		marshaller = marshal.Known
	}
	return &MultiFormat{loader: loader, marshaller: marshaller}
}

// List returns a descriptor per file the loader knows about. A config
// written in two formats shows up twice, once per format, and each
// descriptor can be passed back to Unmarshal or Delete to address that
// one file.
func (mf *MultiFormat) List() ([]Descriptor, error) {
	files, err := mf.loader.List()
	if err != nil {
		return nil, err
	}
	descs := make([]Descriptor, 0, len(files))
	for _, name := range files {
		descs = append(descs, descriptorForPath(name, mf.marshaller))
	}
	return descs, nil
}

// Marshal stores value under desc, in the preferred format for a plain
// Key, or in the pinned format for a FormatKey or List descriptor.
func (mf *MultiFormat) Marshal(desc Descriptor, value interface{}) error {
	d, err := mf.resolve(desc)
	if err != nil {
		return err
	}
	m := d.m
	if m == nil {
		m = mf.marshaller[0]
	}
	data, err := m.Marshal(value)
	if err != nil {
		return err
	}
	return mf.loader.Write(filename(d.k, m), data)
}

// Unmarshal reads desc into value and returns a descriptor pinning the
// format the value was found in. A plain Key tries each format in
// order, and when no format has the key, the error of the last attempt
// is returned, so a miss in every format still satisfies os.IsNotExist.
func (mf *MultiFormat) Unmarshal(desc Descriptor, value interface{}) (Descriptor, error) {
	d, err := mf.resolve(desc)
	if err != nil {
		return nil, err
	}
	if d.m != nil {
		return mf.read(d.m, d.k, value)
	}

	var lastErr error
	for _, m := range mf.marshaller {
		found, err := mf.read(m, d.k, value)
		if err == nil {
			return found, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Delete removes the entry. A plain Key removes the entry in every
// format it exists in, a pinned descriptor only the one file.
func (mf *MultiFormat) Delete(desc Descriptor) error {
	d, err := mf.resolve(desc)
	if err != nil {
		return err
	}
	if d.m != nil {
		return mf.loader.Delete(filename(d.k, d.m))
	}

	missing := 0
	var errs []error
	for _, m := range mf.marshaller {
		name := filename(d.k, m)
		switch err := mf.loader.Delete(name); {
		case err == nil:
		case os.IsNotExist(err):
			missing += 1
		default:
			errs = append(errs, fmt.Errorf("could not delete %s: %w", name, err))
		}
	}
	if missing == len(mf.marshaller) {
		return os.ErrNotExist
	}
	return multierror.New(errs)
}

func (mf *MultiFormat) read(m marshal.FileMarshaller, key string, value interface{}) (Descriptor, error) {
	data, err := mf.loader.Read(filename(key, m))
	if err != nil {
		return nil, err
	}
	// An empty file is a valid config that sets nothing.
	if len(data) > 0 {
		if err := m.Unmarshal(data, value); err != nil {
			return nil, err
		}
	}
	return &multiDescriptor{m: m, k: key}, nil
}

func (mf *MultiFormat) resolve(desc Descriptor) (*multiDescriptor, error) {
	switch t := desc.(type) {
	case Key:
		return &multiDescriptor{k: string(t)}, nil
	case *multiDescriptor:
		return t, nil
	case nil:
		return nil, fmt.Errorf("API Usage Error - MultiFormat needs a non-nil descriptor")
	default:
		return nil, fmt.Errorf("API Usage Error - MultiFormat passed an unknown descriptor type - %#v", desc)
	}
}

// FormatKey returns a descriptor addressing key in one specific format,
// bypassing the format preference a plain Key would follow.
func FormatKey(key string, m marshal.FileMarshaller) Descriptor {
	return &multiDescriptor{m: m, k: key}
}

type multiDescriptor struct {
	m marshal.FileMarshaller
	k string
}

func (d *multiDescriptor) Key() string {
	return d.k
}

func filename(key string, m marshal.FileMarshaller) string {
	return EncodeKey(key) + "." + m.Extension()
}

func descriptorForPath(path string, known []marshal.FileMarshaller) *multiDescriptor {
	m := marshal.FileMarshallers(known).ByFilePathExtension(path)
	if m == nil {
		return &multiDescriptor{k: DecodeKey(path)}
	}
	return &multiDescriptor{m: m, k: DecodeKey(strings.TrimSuffix(path, "."+m.Extension()))}
}
