package config

// Binding is a single entry of a Store, with the key fixed up front.
//
// Useful for code that owns exactly one config object and should not be
// concerned with naming, like a cache holding one state file.
type Binding interface {
	Marshal(value interface{}) error
	Unmarshal(value interface{}) error
	Delete() error
}

type StoreBinding struct {
	store Store
	key   string
}

func Bind(store Store, key string) *StoreBinding {
	return &StoreBinding{store: store, key: key}
}

func (b *StoreBinding) Marshal(value interface{}) error {
	return b.store.Marshal(Key(b.key), value)
}

func (b *StoreBinding) Unmarshal(value interface{}) error {
	_, err := b.store.Unmarshal(Key(b.key), value)
	return err
}

func (b *StoreBinding) Delete() error {
	return b.store.Delete(Key(b.key))
}
