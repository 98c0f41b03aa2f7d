// Package config provides a unified interface for configuration stores.
//
// A Store turns Go values into files and back. It is assembled from a
// Loader, which knows where bytes live (typically a directory on disk, see
// the directory subpackage), and one or more marshallers, which know how
// values become bytes (see the marshal subpackage).
//
// Stores come in two flavors:
//   - Simple: one fixed format. Files are named <encoded key>.<extension>.
//   - Multi: any known format. Reads try each format in preference order,
//     so a user can keep config.toml or config.yaml interchangeably.
//
// Keys are arbitrary strings. Characters that are unsafe in file names are
// percent encoded, see EncodeKey.
package config

// A Descriptor identifies an entry of a Store.
//
// Plain keys are created with Key. Stores may return richer descriptors
// from List and Unmarshal that pin down details like the serialization
// format, and honor those details when passed back to Marshal or Delete.
type Descriptor interface {
	Key() string
}

// Key is the simplest Descriptor, a bare name with no format attached.
type Key string

func (k Key) Key() string {
	return string(k)
}

// Loader moves raw bytes in and out of a backing location.
//
// Read and Delete of an entry that does not exist return an error
// satisfying os.IsNotExist. Write creates the backing location if needed.
type Loader interface {
	List() ([]string, error)
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Delete(name string) error
}

// Store persists marshalled values by key.
type Store interface {
	List() ([]Descriptor, error)
	Marshal(desc Descriptor, value interface{}) error
	Unmarshal(desc Descriptor, value interface{}) (Descriptor, error)
	Delete(desc Descriptor) error
}

// Opener creates the store for an application namespace.
type Opener func(name string, namespace ...string) (Store, error)
