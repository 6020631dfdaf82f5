package engine

import (
	"bytes"
	stdgzip "compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleText() []byte {
	var b strings.Builder
	for i := 0; b.Len() < 50_000; i++ {
		fmt.Fprintf(&b, "entry %d: engine test payload %d\n", i, i%13)
	}
	return []byte(b.String())
}

func newEngine(t *testing.T, format Format, level int) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.Format = format
	opts.Level = level
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func TestCompressDecompress(t *testing.T) {
	data := sampleText()
	for i := range Formats {
		format := Format(i)
		for _, level := range []int{0, 1, 6, 9} {
			t.Run(fmt.Sprintf("%s/%d", format, level), func(t *testing.T) {
				e := newEngine(t, format, level)

				var compressed bytes.Buffer
				stats, err := e.Compress(context.Background(), bytes.NewReader(data), &compressed)
				require.NoError(t, err)
				assert.Equal(t, ModeCompress, stats.Mode)
				assert.Equal(t, int64(len(data)), stats.In)
				assert.Equal(t, int64(compressed.Len()), stats.Out)

				var out bytes.Buffer
				stats, err = e.Decompress(context.Background(), &compressed, &out)
				require.NoError(t, err)
				assert.Equal(t, ModeDecompress, stats.Mode)
				assert.Equal(t, int64(len(data)), stats.Out)
				assert.True(t, bytes.Equal(data, out.Bytes()))
			})
		}
	}
}

func TestDecompressCountsConsumedInput(t *testing.T) {
	data := sampleText()
	for i := range Formats {
		format := Format(i)
		t.Run(format.String(), func(t *testing.T) {
			e := newEngine(t, format, 6)

			var compressed bytes.Buffer
			_, err := e.Compress(context.Background(), bytes.NewReader(data), &compressed)
			require.NoError(t, err)
			size := compressed.Len()
			compressed.Write(bytes.Repeat([]byte("trailing data"), 1000))

			var out bytes.Buffer
			stats, err := e.Decompress(context.Background(), &compressed, &out)
			require.NoError(t, err)
			assert.Equal(t, int64(size), stats.In)
			assert.True(t, bytes.Equal(data, out.Bytes()))
		})
	}
}

func TestGzipOutputIsStandard(t *testing.T) {
	data := sampleText()
	e := newEngine(t, FormatGzip, 9)
	var compressed bytes.Buffer
	_, err := e.Compress(context.Background(), bytes.NewReader(data), &compressed)
	require.NoError(t, err)

	r, err := stdgzip.NewReader(&compressed)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestRunAutoMode(t *testing.T) {
	data := sampleText()

	gz := newEngine(t, FormatGzip, -1)
	var compressed bytes.Buffer
	stats, err := gz.Run(context.Background(), ModeAuto, bytes.NewReader(data), &compressed)
	require.NoError(t, err)
	assert.Equal(t, ModeCompress, stats.Mode)

	var out bytes.Buffer
	stats, err = gz.Run(context.Background(), ModeAuto, bytes.NewReader(compressed.Bytes()), &out)
	require.NoError(t, err)
	assert.Equal(t, ModeDecompress, stats.Mode)
	assert.Equal(t, data, out.Bytes())

	zl := newEngine(t, FormatZlib, -1)
	compressed.Reset()
	_, err = zl.Run(context.Background(), ModeCompress, bytes.NewReader(data), &compressed)
	require.NoError(t, err)
	out.Reset()
	stats, err = zl.Run(context.Background(), ModeAuto, &compressed, &out)
	require.NoError(t, err)
	assert.Equal(t, ModeDecompress, stats.Mode)
	assert.Equal(t, data, out.Bytes())

	raw := newEngine(t, FormatDeflate, -1)
	stats, err = raw.Run(context.Background(), ModeAuto, bytes.NewReader(data), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ModeCompress, stats.Mode)
}

func TestResolve(t *testing.T) {
	e := newEngine(t, FormatGzip, -1)
	plain := []byte("plain text is compressed")

	mode, src, err := e.Resolve(ModeAuto, bytes.NewReader(plain))
	require.NoError(t, err)
	assert.Equal(t, ModeCompress, mode)
	got, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	var compressed bytes.Buffer
	_, err = e.Compress(context.Background(), bytes.NewReader(plain), &compressed)
	require.NoError(t, err)
	mode, src, err = e.Resolve(ModeAuto, bytes.NewReader(compressed.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, ModeDecompress, mode)
	got, err = io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, compressed.Bytes(), got)

	in := bytes.NewReader(plain)
	mode, src, err = e.Resolve(ModeDecompress, in)
	require.NoError(t, err)
	assert.Equal(t, ModeDecompress, mode)
	assert.Same(t, in, src)
}

func TestRunAutoModeEmptyInput(t *testing.T) {
	e := newEngine(t, FormatGzip, -1)
	var compressed bytes.Buffer
	stats, err := e.Run(context.Background(), ModeAuto, bytes.NewReader(nil), &compressed)
	require.NoError(t, err)
	assert.Equal(t, ModeCompress, stats.Mode)
	assert.Equal(t, 20, compressed.Len())
}

func TestDetect(t *testing.T) {
	assert.True(t, Detect([]byte{0x1f, 0x8b, 0x08, 0x00}, FormatGzip))
	assert.False(t, Detect([]byte("plain text"), FormatGzip))
	assert.True(t, Detect([]byte{0x78, 0x9c}, FormatZlib))
	assert.False(t, Detect([]byte{0x78}, FormatZlib))
	assert.False(t, Detect([]byte{0x1f, 0x8b}, FormatDeflate))
}

func TestSessionFlush(t *testing.T) {
	e := newEngine(t, FormatGzip, -1)
	var buf bytes.Buffer
	s, err := e.NewSession(&buf)
	require.NoError(t, err)

	_, err = s.Write([]byte("interactive "))
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	r, err := stdgzip.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	got := make([]byte, len("interactive "))
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	assert.Equal(t, "interactive ", string(got))

	_, err = s.Write([]byte("session"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Equal(t, int64(len("interactive session")), s.Stats().In)
	assert.Equal(t, int64(buf.Len()), s.Stats().Out)

	var out bytes.Buffer
	_, err = e.Decompress(context.Background(), &buf, &out)
	require.NoError(t, err)
	assert.Equal(t, "interactive session", out.String())
}

func TestClassify(t *testing.T) {
	e := newEngine(t, FormatGzip, -1)
	var valid bytes.Buffer
	_, err := e.Compress(context.Background(), bytes.NewReader(sampleText()), &valid)
	require.NoError(t, err)
	stream := valid.Bytes()

	decode := func(b []byte) error {
		_, err := e.Decompress(context.Background(), bytes.NewReader(b), io.Discard)
		return err
	}

	badMagic := bytes.Clone(stream)
	badMagic[0] = 'x'
	badCRC := bytes.Clone(stream)
	badCRC[len(badCRC)-5] ^= 0x10
	badSize := bytes.Clone(stream)
	badSize[len(badSize)-1] ^= 0x10
	reserved := bytes.Clone(stream)
	reserved[10] |= 0x06

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, canceled := e.Compress(ctx, bytes.NewReader([]byte("x")), io.Discard)

	cases := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"nil", nil, KindNone},
		{"plain", errors.New("disk on fire"), KindIO},
		{"bad-magic", decode(badMagic), KindUnsupportedFormat},
		{"header-only", decode(stream[:10]), KindTruncatedStream},
		{"short-header", decode(stream[:4]), KindUnexpectedEOF},
		{"body-cut", decode(stream[:len(stream)/2]), KindTruncatedStream},
		{"crc", decode(badCRC), KindChecksumMismatch},
		{"size", decode(badSize), KindSizeMismatch},
		{"reserved-block", decode(reserved), KindInvalidBlockType},
		{"canceled", canceled, KindCanceled},
		{"options", func() error { _, err := ParseFormat("brotli"); return err }(), KindInvalidOptions},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.kind, Classify(c.err), "%v", c.err)
		})
	}

	assert.True(t, KindInvalidCode.BadInput())
	assert.True(t, KindUnsupportedFormat.BadInput())
	assert.False(t, KindChecksumMismatch.BadInput())
	assert.True(t, KindSizeMismatch.Integrity())
	assert.False(t, KindIO.Integrity())
}

func TestParseFormat(t *testing.T) {
	for i, name := range Formats {
		f, err := ParseFormat(strings.ToUpper(name))
		require.NoError(t, err)
		assert.Equal(t, Format(i), f)
		assert.Equal(t, name, f.String())
	}
	_, err := ParseFormat("lzma")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	for name, mutate := range map[string]func(*Options){
		"level":      func(o *Options) { o.Level = 12 },
		"format":     func(o *Options) { o.Format = Format(7) },
		"block-size": func(o *Options) { o.BlockSize = 1 << 20 },
	} {
		opts := DefaultOptions()
		mutate(&opts)
		_, err := New(opts)
		assert.ErrorIs(t, err, ErrInvalidOptions, name)
	}
}

func TestProcessFiles(t *testing.T) {
	dir := t.TempDir()
	data := sampleText()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, data, 0o644))
	require.NoError(t, os.WriteFile(b, []byte("second"), 0o600))

	e := newEngine(t, FormatGzip, -1)
	results := e.ProcessFiles(context.Background(), ModeCompress, []string{a, b, filepath.Join(dir, "missing")}, FileOptions{Delete: true})
	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Error(t, results[2].Err)
	assert.Equal(t, a+".gz", results[0].Output)
	assert.Equal(t, int64(len(data)), results[0].Stats.In)
	assert.NoFileExists(t, a)
	assert.FileExists(t, a+".gz")

	compressed, err := os.ReadFile(a + ".gz")
	require.NoError(t, err)
	r, err := stdgzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", r.Name)

	results = e.ProcessFiles(context.Background(), ModeAuto, []string{a + ".gz", b + ".gz"}, FileOptions{})
	for _, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, ModeDecompress, res.Stats.Mode)
	}
	got, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	info, err := os.Stat(b)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.FileExists(t, b+".gz")
}

func TestProcessFilesRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(src+".gz", []byte("existing"), 0o644))

	e := newEngine(t, FormatGzip, -1)
	results := e.ProcessFiles(context.Background(), ModeCompress, []string{src}, FileOptions{})
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	existing, err := os.ReadFile(src + ".gz")
	require.NoError(t, err)
	assert.Equal(t, "existing", string(existing))

	results = e.ProcessFiles(context.Background(), ModeDecompress, []string{src}, FileOptions{})
	assert.ErrorIs(t, results[0].Err, ErrInvalidOptions)
}

func TestProcessFilesRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.gz")
	require.NoError(t, os.WriteFile(bad, []byte{0x1f, 0x8b, 0x08, 0x00, 0, 0, 0, 0, 0, 0xff, 0x07}, 0o644))

	e := newEngine(t, FormatGzip, -1)
	results := e.ProcessFiles(context.Background(), ModeDecompress, []string{bad}, FileOptions{Delete: true})
	require.Len(t, results, 1)
	assert.Equal(t, KindInvalidBlockType, Classify(results[0].Err))
	assert.NoFileExists(t, filepath.Join(dir, "bad"))
	assert.FileExists(t, bad)
}
