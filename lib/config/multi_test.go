package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ironthree/fedora-go/lib/config/directory"
	"github.com/ironthree/fedora-go/lib/config/marshal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type innerTestConfig struct {
	Server string
}

type multiTestConfig struct {
	Key   string
	Value string
	Inner innerTestConfig
}

func TestMulti(t *testing.T) {
	hd, err := directory.OpenDir(filepath.Join(t.TempDir(), "test"))
	require.NoError(t, err)

	data := multiTestConfig{
		Key:   "username",
		Value: "rawhide",
		Inner: innerTestConfig{
			Server: "https://id.fedoraproject.org/api/v1/",
		},
	}

	m := NewMulti(hd)

	found, err := m.List()
	require.NoError(t, err)
	assert.Equal(t, 0, len(found))

	var read multiTestConfig
	_, err = m.Unmarshal(Key("profile"), &read)
	assert.True(t, os.IsNotExist(err))

	err = m.Delete(Key("profile"))
	assert.True(t, os.IsNotExist(err), "%v", err)
	err = m.Delete(Key("profile.toml"))
	assert.True(t, os.IsNotExist(err))

	err = m.Marshal(Key("profile"), data)
	require.NoError(t, err)

	desc, err := m.Unmarshal(Key("profile"), &read)
	require.NoError(t, err)
	assert.Equal(t, "profile", desc.Key())
	assert.Equal(t, marshal.Toml, desc.(*multiDescriptor).m)
	assert.Equal(t, data, read)

	data2 := multiTestConfig{
		Key: "staging",
	}
	data3 := multiTestConfig{
		Key: "production",
	}

	err = m.Marshal(FormatKey("profile", marshal.Json), data2)
	require.NoError(t, err)

	// Despite writing a profile.json file, the preferred profile is the toml one.
	desc, err = m.Unmarshal(Key("profile"), &read)
	require.NoError(t, err)
	assert.Equal(t, "profile", desc.Key())
	assert.Equal(t, marshal.Toml, desc.(*multiDescriptor).m)
	assert.Equal(t, data, read)

	// And writing it affects the toml, but not the json.
	err = m.Marshal(Key("profile"), data3)
	require.NoError(t, err)

	desc, err = m.Unmarshal(FormatKey("profile", marshal.Json), &read)
	require.NoError(t, err)
	assert.Equal(t, "profile", desc.Key())
	assert.Equal(t, marshal.Json, desc.(*multiDescriptor).m)
	assert.Equal(t, data2, read)

	// Marshalling via descriptor affects the correct file.
	err = m.Marshal(desc, data)
	require.NoError(t, err)

	// Now we add a 3rd format, just so we can delete a file later.
	err = m.Marshal(FormatKey("profile", marshal.Yaml), data2)
	require.NoError(t, err)

	found, err = m.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"profile.json", "profile.toml", "profile.yaml"}, descriptorPaths(found))

	// Let's delete a specific file.
	err = m.Delete(desc)
	require.NoError(t, err)

	found, err = m.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"profile.toml", "profile.yaml"}, descriptorPaths(found))

	// Let's delete the whole key.
	err = m.Delete(Key("profile"))
	require.NoError(t, err)

	found, err = m.List()
	require.NoError(t, err)
	assert.Empty(t, found)
}

func descriptorPaths(descs []Descriptor) []string {
	paths := make([]string, 0, len(descs))
	for _, desc := range descs {
		if d, ok := desc.(*multiDescriptor); ok {
			paths = append(paths, d.k+"."+d.m.Extension())
		}
	}
	return paths
}

func TestMultiKeyWithExtension(t *testing.T) {
	hd, err := directory.OpenDir(filepath.Join(t.TempDir(), "test"))
	require.NoError(t, err)

	m := NewMulti(hd, marshal.Toml)
	data := multiTestConfig{Key: "k", Value: "v"}
	key := "foo.toml"
	err = m.Marshal(Key(key), data)
	require.NoError(t, err)

	var read multiTestConfig
	_, err = m.Unmarshal(Key(key), &read)
	require.NoError(t, err)
	assert.Equal(t, data, read)

	files, err := hd.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "foo.toml.toml", files[0])
}
