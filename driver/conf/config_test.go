package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := NewCfg().Load(&CommandLineArgs{})
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.FetchSize)
		assert.Equal(t, "ROWID", cfg.RowIDColumn)
		assert.Equal(t, 10, cfg.RefreshBatchSize)
		assert.Equal(t, MaxLobChunkSize, cfg.LobChunkSize)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("Ini", func(t *testing.T) {
		path := writeFile(t, "driver.ini", `
[driver]
fetch_size         = 50
max_rows           = 1000
use_cursor_fetch   = true
deprecate_eof      = true
row_id_addressable = true
row_id_column      = _rowid
refresh_batch_size = 4
compress           = lz4

[lob]
lob_chunk_size = 4096
lob_max_chunks = 16

[logs]
log_level = debug
`)
		cfg, err := NewCfg().Load(&CommandLineArgs{ConfigPath: path})
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.FetchSize)
		assert.Equal(t, int64(1000), cfg.MaxRows)
		assert.True(t, cfg.UseCursorFetch)
		assert.True(t, cfg.DeprecateEOF)
		assert.True(t, cfg.RowIDAddressable)
		assert.Equal(t, "_rowid", cfg.RowIDColumn)
		assert.Equal(t, 4, cfg.RefreshBatchSize)
		assert.Equal(t, "lz4", cfg.Compress)
		assert.Equal(t, 4096, cfg.LobChunkSize)
		assert.Equal(t, 16, cfg.LobMaxChunks)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "50", cfg.Raw.Section("driver").Key("fetch_size").String())
	})

	t.Run("Toml", func(t *testing.T) {
		path := writeFile(t, "driver.toml", `
[driver]
fetch_size = 25
use_cursor_fetch = true
compress = "snappy"

[lob]
lob_max_chunks = 8

[logs]
log_level = "warn"
`)
		cfg, err := NewCfg().Load(&CommandLineArgs{ConfigPath: path})
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.FetchSize)
		assert.True(t, cfg.UseCursorFetch)
		assert.Equal(t, "snappy", cfg.Compress)
		assert.Equal(t, 8, cfg.LobMaxChunks)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, 10, cfg.RefreshBatchSize)
	})

	t.Run("DSNOverridesFile", func(t *testing.T) {
		path := writeFile(t, "driver.ini", "[driver]\nfetch_size = 50\n")
		cfg, err := NewCfg().Load(&CommandLineArgs{
			ConfigPath: path,
			DSN:        "app:secret@tcp(127.0.0.1:3306)/shop?fetchSize=200&useCursorFetch=true&rowIdColumn=RID&logLevel=error",
		})
		require.NoError(t, err)
		assert.Equal(t, 200, cfg.FetchSize)
		assert.True(t, cfg.UseCursorFetch)
		assert.Equal(t, "RID", cfg.RowIDColumn)
		assert.Equal(t, "error", cfg.LogLevel)
		assert.Equal(t, "app", cfg.User)
		assert.Equal(t, "127.0.0.1:3306", cfg.Addr)
		assert.Equal(t, "shop", cfg.DBName)
	})

	t.Run("BadDSNParam", func(t *testing.T) {
		_, err := NewCfg().Load(&CommandLineArgs{DSN: "app@tcp(127.0.0.1:3306)/shop?fetchSize=many"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fetchSize=many")
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := NewCfg().Load(&CommandLineArgs{ConfigPath: filepath.Join(t.TempDir(), "absent.ini")})
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *Cfg)
	}{
		{"NegativeFetchSize", func(cfg *Cfg) { cfg.FetchSize = -1 }},
		{"NegativeMaxRows", func(cfg *Cfg) { cfg.MaxRows = -5 }},
		{"ChunkTooLarge", func(cfg *Cfg) { cfg.LobChunkSize = MaxLobChunkSize + 1 }},
		{"ZeroChunk", func(cfg *Cfg) { cfg.LobChunkSize = 0 }},
		{"ZeroMaxChunks", func(cfg *Cfg) { cfg.LobMaxChunks = 0 }},
		{"UnknownCompress", func(cfg *Cfg) { cfg.Compress = "brotli" }},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			cfg := NewCfg()
			c.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsNotValid(err))
		})
	}

	t.Run("BatchSizeClamped", func(t *testing.T) {
		cfg := NewCfg()
		cfg.RefreshBatchSize = 0
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 1, cfg.RefreshBatchSize)
	})
}
