package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, contents string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "wzip.toml")
	require.NoError(t, os.WriteFile(file, []byte(contents), 0o644))
	return file
}

func TestDefaults(t *testing.T) {
	cfg, err := NewConfig([]string{})
	require.NoError(t, err)

	assert.False(t, cfg.CLI.Compress)
	assert.False(t, cfg.CLI.Decompress)
	assert.Equal(t, DefaultSuffix, cfg.CLI.Suffix)
	assert.Equal(t, DefaultLevel, *cfg.TOML.Compress.Level)
	assert.Equal(t, DefaultFormat, cfg.TOML.Compress.Format)
	assert.Equal(t, DefaultBlockSize, cfg.TOML.Compress.BlockSize)
	assert.Equal(t, DefaultListen, cfg.TOML.Server.Listen)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.TOML.Server.MaxBodyBytes)
	assert.Equal(t, 30*time.Second, cfg.TOML.Server.ReadTimeout.Duration())
	assert.Equal(t, DefaultLogLevel, cfg.TOML.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.TOML.Log.Format)
}

func TestReadsTOMLFile(t *testing.T) {
	file := writeTOML(t, `
[compress]
level = 0
format = "zlib"
block_size = 4096

[server]
listen = "127.0.0.1:9000"
max_body_bytes = 1024
read_timeout = "2s"
write_timeout = "3s"

[log]
level = "warn"
format = "json"
`)
	cfg, err := NewConfig([]string{"--config-file", file})
	require.NoError(t, err)

	assert.Equal(t, 0, *cfg.TOML.Compress.Level)
	assert.Equal(t, "zlib", cfg.TOML.Compress.Format)
	assert.Equal(t, 4096, cfg.TOML.Compress.BlockSize)
	assert.Equal(t, "127.0.0.1:9000", cfg.TOML.Server.Listen)
	assert.Equal(t, int64(1024), cfg.TOML.Server.MaxBodyBytes)
	assert.Equal(t, 2*time.Second, cfg.TOML.Server.ReadTimeout.Duration())
	assert.Equal(t, 3*time.Second, cfg.TOML.Server.WriteTimeout.Duration())
	assert.Equal(t, DefaultShutdownTimeout, cfg.TOML.Server.ShutdownTimeout)
	assert.Equal(t, "warn", cfg.TOML.Log.Level)
	assert.Equal(t, "json", cfg.TOML.Log.Format)
}

func TestFlagsOverrideTOML(t *testing.T) {
	file := writeTOML(t, `
[compress]
level = 1
format = "zlib"
`)
	cfg, err := NewConfig([]string{"--config-file", file, "-l", "9", "-f", "deflate", "--listen", ":7000", "-D"})
	require.NoError(t, err)

	assert.Equal(t, 9, *cfg.TOML.Compress.Level)
	assert.Equal(t, "deflate", cfg.TOML.Compress.Format)
	assert.Equal(t, ":7000", cfg.TOML.Server.Listen)
	assert.Equal(t, "debug", cfg.TOML.Log.Level)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("WZIP_LEVEL", "3")
	t.Setenv("WZIP_FORMAT", "zlib")

	cfg, err := NewConfig([]string{"-c"})
	require.NoError(t, err)
	assert.True(t, cfg.CLI.Compress)
	assert.Equal(t, 3, *cfg.TOML.Compress.Level)
	assert.Equal(t, "zlib", cfg.TOML.Compress.Format)
}

func TestInvalidTOML(t *testing.T) {
	cases := map[string]string{
		"level":        "[compress]\nlevel = 12\n",
		"format":       "[compress]\nformat = \"lz4\"\n",
		"block-size":   "[compress]\nblock_size = 16\n",
		"body":         "[server]\nmax_body_bytes = -5\n",
		"timeout":      "[server]\nread_timeout = \"2h\"\n",
		"log-level":    "[log]\nlevel = \"loud\"\n",
		"log-format":   "[log]\nformat = \"xml\"\n",
		"syntax":       "[compress\n",
		"bad-duration": "[server]\nwrite_timeout = \"soon\"\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfig([]string{"--config-file", writeTOML(t, contents)})
			assert.Error(t, err)
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := NewConfig([]string{"--config-file", filepath.Join(t.TempDir(), "nope.toml")})
	assert.Error(t, err)
}

func TestInvalidArgs(t *testing.T) {
	cases := map[string][]string{
		"both-modes":      {"-c", "-d"},
		"level":           {"-l", "10"},
		"format":          {"-f", "brotli"},
		"files-and-input": {"-i", "in.txt", "a.txt"},
		"listen-and-file": {"--listen", ":80", "a.txt"},
		"delete-no-files": {"--delete"},
		"empty-suffix":    {"--suffix", ""},
		"unknown-flag":    {"--bogus"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfig(args)
			assert.Error(t, err)
		})
	}
}

func TestFilesAndFlags(t *testing.T) {
	cfg, err := NewConfig([]string{"-d", "--delete", "-p", "-S", ".z", "a.z", "b.z"})
	require.NoError(t, err)
	assert.True(t, cfg.CLI.Decompress)
	assert.True(t, cfg.CLI.Delete)
	assert.True(t, cfg.CLI.Progress)
	assert.Equal(t, ".z", cfg.CLI.Suffix)
	assert.Equal(t, []string{"a.z", "b.z"}, cfg.CLI.Files)
}

func TestDurationText(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("later")))
}
