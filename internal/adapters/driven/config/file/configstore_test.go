package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[instance]
url = "http://lidarr:8686"
api_key = "abc123"
timeout_seconds = 30
requests_per_second = 2.5

[drift]
artifacts = "artifacts/drift"
max_inconclusive_percent = 15

[drift.providers.qobuz]
threshold = 6

[drift.providers.deezer]
threshold = 3

[plugins.Qobuzarr]
expect_indexer = true
indexer_id = 12
`

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, DefaultDirName, "config.toml"), store.Path())
}

func TestConfigStore_LoadFlattensTables(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "http://lidarr:8686", store.GetString("instance.url"))
	assert.Equal(t, "abc123", store.GetString("instance.api_key"))
	assert.Equal(t, 30, store.GetInt("instance.timeout_seconds"))
	assert.Equal(t, 2.5, store.GetFloat("instance.requests_per_second"))
	assert.Equal(t, 6, store.GetInt("drift.providers.qobuz.threshold"))
	assert.True(t, store.GetBool("plugins.Qobuzarr.expect_indexer"))
	assert.Equal(t, 12, store.GetInt("plugins.Qobuzarr.indexer_id"))
}

func TestConfigStore_GetFloat(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 15.0, store.GetFloat("drift.max_inconclusive_percent"), "integers read as floats")
	assert.Equal(t, 0.0, store.GetFloat("drift.artifacts"), "strings are not numeric")
	assert.Equal(t, 0.0, store.GetFloat("nonexistent"))
}

func TestConfigStore_Keys(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"drift.providers.deezer.threshold",
		"drift.providers.qobuz.threshold",
	}, store.Keys("drift.providers."))
	assert.Empty(t, store.Keys("gates."))
	assert.Len(t, store.Keys(""), 10)
}

func TestConfigStore_GetString(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("instance.container", "lidarr"))
	assert.Equal(t, "lidarr", store.GetString("instance.container"))
	assert.Equal(t, "", store.GetString("nonexistent"))

	require.NoError(t, store.Set("instance.timeout_seconds", 10))
	assert.Equal(t, "", store.GetString("instance.timeout_seconds"), "wrong type")
}

func TestConfigStore_GetInt(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("drift.window_size", 20))
	assert.Equal(t, 20, store.GetInt("drift.window_size"))
	assert.Equal(t, 0, store.GetInt("nonexistent"))

	require.NoError(t, store.Set("drift.window_mode", "explicit"))
	assert.Equal(t, 0, store.GetInt("drift.window_mode"), "wrong type")
}

func TestConfigStore_GetBool(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("plugins.brainarr.expect_import_list", true))
	require.NoError(t, store.Set("plugins.brainarr.expect_indexer", false))
	require.NoError(t, store.Set("plugins.brainarr.name", "true"))

	assert.True(t, store.GetBool("plugins.brainarr.expect_import_list"))
	assert.False(t, store.GetBool("plugins.brainarr.expect_indexer"))
	assert.False(t, store.GetBool("plugins.brainarr.name"), "wrong type")
	assert.False(t, store.GetBool("nonexistent"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "[gates]\nplugins = [\"qobuzarr\", \"tidalarr\"]\n")

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"qobuzarr", "tidalarr"}, store.GetStringSlice("gates.plugins"))
	assert.Nil(t, store.GetStringSlice("nonexistent"))
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	val, ok := store.Get("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_PersistenceWritesTables(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("instance.url", "http://localhost:8686"))
	require.NoError(t, store1.Set("drift.providers.tidal.threshold", 9))
	require.NoError(t, store1.Set("gates.search_term", "Bjork"))

	raw, err := os.ReadFile(store1.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[instance]")
	assert.Contains(t, string(raw), "[drift.providers.tidal]")

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8686", store2.GetString("instance.url"))
	assert.Equal(t, 9, store2.GetInt("drift.providers.tidal.threshold"))
	assert.Equal(t, "Bjork", store2.GetString("gates.search_term"))
}

func TestNestMap_LeafWinsOverTable(t *testing.T) {
	nested := nestMap(map[string]any{
		"gates":        "oops",
		"gates.search": "term",
		"instance.url": "u",
	})

	assert.Equal(t, "oops", nested["gates"])
	assert.Equal(t, map[string]any{"url": "u"}, nested["instance"])
}

func TestFlattenMap_RoundTrip(t *testing.T) {
	flat := map[string]any{
		"a":     int64(1),
		"b.c":   "x",
		"b.d.e": true,
	}

	assert.Equal(t, flat, flattenMap(nestMap(flat), ""))
}

func TestConfigStore_Load_NonExistent(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	_, ok := store.Get("instance.url")
	assert.False(t, ok)
	assert.Empty(t, store.Keys(""))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("instance.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "")

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	_, ok := store.Get("any_key")
	assert.False(t, ok)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "plugins.p" + string(rune('0'+id)) + ".indexer_id"
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.GetFloat(key)
			_ = store.Keys("plugins.")
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys("plugins."), 10)
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "this is not valid TOML {{{[[")

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_Save_Explicit(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	store.mu.Lock()
	store.data["gates.indexer_match"] = "explicit"
	store.mu.Unlock()

	require.NoError(t, store.Save())

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "explicit", store2.GetString("gates.indexer_match"))
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_Load_InvalidTOML(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("valid", "data"))

	require.NoError(t, os.WriteFile(store.Path(), []byte("invalid toml syntax ][}{"), 0600))

	assert.Error(t, store.Load())
}
