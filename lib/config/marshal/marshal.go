// Package marshal abstracts the serialization format of configuration files.
//
// A FileMarshaller pairs an encoding with the file extension it is stored
// under, so stores can pick the codec from the file name alone.
package marshal

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v2"
)

type Marshaller interface {
	Marshal(value interface{}) ([]byte, error)
	Unmarshal(data []byte, value interface{}) error
}

type FileMarshaller interface {
	Marshaller
	Extension() string
}

type TomlEncoder struct{}

func (*TomlEncoder) Extension() string {
	return "toml"
}

func (*TomlEncoder) Marshal(value interface{}) ([]byte, error) {
	return toml.Marshal(value)
}

func (*TomlEncoder) Unmarshal(data []byte, value interface{}) error {
	return toml.Unmarshal(data, value)
}

var Toml = &TomlEncoder{}

type JsonEncoder struct{}

func (*JsonEncoder) Extension() string {
	return "json"
}

func (*JsonEncoder) Marshal(value interface{}) ([]byte, error) {
	return json.MarshalIndent(value, "", "  ")
}

func (*JsonEncoder) Unmarshal(data []byte, value interface{}) error {
	return json.Unmarshal(data, value)
}

var Json = &JsonEncoder{}

type YamlEncoder struct{}

func (*YamlEncoder) Extension() string {
	return "yaml"
}

func (*YamlEncoder) Marshal(value interface{}) ([]byte, error) {
	return yaml.Marshal(value)
}

func (*YamlEncoder) Unmarshal(data []byte, value interface{}) error {
	return yaml.Unmarshal(data, value)
}

var Yaml = &YamlEncoder{}

type GobEncoder struct{}

func (*GobEncoder) Extension() string {
	return "gob"
}

func (*GobEncoder) Marshal(value interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(value); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (*GobEncoder) Unmarshal(data []byte, value interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(value)
}

var Gob = &GobEncoder{}

// Known lists all supported formats. The first entry is the preferred one.
var Known = []FileMarshaller{Toml, Json, Yaml, Gob}

type FileMarshallers []FileMarshaller

// ByExtension returns the marshaller registered for the extension, without
// leading dot, or nil if the extension is unknown.
func (fms FileMarshallers) ByExtension(ext string) FileMarshaller {
	ext = strings.ToLower(ext)
	for _, m := range fms {
		if m.Extension() == ext {
			return m
		}
	}
	return nil
}

// ByFilePathExtension returns the marshaller matching the extension of the
// supplied path, or nil if there is none.
func (fms FileMarshallers) ByFilePathExtension(path string) FileMarshaller {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil
	}
	return fms.ByExtension(ext[1:])
}

// ByExtension looks up the extension among all Known formats.
func ByExtension(ext string) (FileMarshaller, error) {
	m := FileMarshallers(Known).ByExtension(ext)
	if m == nil {
		return nil, fmt.Errorf("unknown format: %s", ext)
	}
	return m, nil
}
