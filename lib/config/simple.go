package config

import (
	"fmt"
	"strings"

	"github.com/ironthree/fedora-go/lib/config/marshal"
)

// SimpleStore persists values in a single fixed format.
//
// Entries are stored as <encoded key>.<extension> through the underlying
// loader. Files carrying a different extension are invisible to the store.
type SimpleStore struct {
	loader     Loader
	marshaller marshal.FileMarshaller
}

func NewSimple(loader Loader, marshaller marshal.FileMarshaller) *SimpleStore {
	return &SimpleStore{loader: loader, marshaller: marshaller}
}

func (ss *SimpleStore) List() ([]Descriptor, error) {
	list, err := ss.loader.List()
	if err != nil {
		return nil, err
	}
	suffix := "." + ss.marshaller.Extension()
	var descs []Descriptor
	for _, name := range list {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		descs = append(descs, Key(DecodeKey(strings.TrimSuffix(name, suffix))))
	}
	return descs, nil
}

func (ss *SimpleStore) Marshal(desc Descriptor, value interface{}) error {
	if desc == nil {
		return fmt.Errorf("API Usage Error - SimpleStore.Marshal must be passed a non-nil descriptor")
	}
	data, err := ss.marshaller.Marshal(value)
	if err != nil {
		return err
	}
	return ss.loader.Write(ss.path(desc.Key()), data)
}

func (ss *SimpleStore) Unmarshal(desc Descriptor, value interface{}) (Descriptor, error) {
	if desc == nil {
		return nil, fmt.Errorf("API Usage Error - SimpleStore.Unmarshal must be passed a non-nil descriptor")
	}
	data, err := ss.loader.Read(ss.path(desc.Key()))
	if err != nil {
		return desc, err
	}
	if len(data) <= 0 {
		return desc, nil
	}
	return desc, ss.marshaller.Unmarshal(data, value)
}

func (ss *SimpleStore) Delete(desc Descriptor) error {
	if desc == nil {
		return fmt.Errorf("API Usage Error - SimpleStore.Delete must be passed a non-nil descriptor")
	}
	return ss.loader.Delete(ss.path(desc.Key()))
}

func (ss *SimpleStore) path(key string) string {
	return EncodeKey(key) + "." + ss.marshaller.Extension()
}
