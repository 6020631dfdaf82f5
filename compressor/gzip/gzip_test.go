package gzip

import (
	"bytes"
	stdgzip "compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	kgzip "github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FitrahHaque/wzip/compressor/bitio"
	"github.com/FitrahHaque/wzip/compressor/flate"
	"github.com/FitrahHaque/wzip/compressor/huffman"
)

func testInputs() map[string][]byte {
	rng := rand.New(rand.NewSource(7))
	random := make([]byte, 50_000)
	rng.Read(random)

	var text strings.Builder
	for i := 0; text.Len() < 70_000; i++ {
		fmt.Fprintf(&text, "%06d the gzip member carries a crc and a size\n", i)
	}
	return map[string][]byte{
		"empty":      {},
		"ten-a":      []byte("aaaaaaaaaa"),
		"text":       []byte(text.String()),
		"random":     random,
		"zero-run":   make([]byte, 100_000),
		"repetition": bytes.Repeat([]byte("wzip "), 20_000),
	}
}

func compress(t testing.TB, data []byte, level int, header Header) []byte {
	t.Helper()
	var buf bytes.Buffer
	z, err := NewWriterLevel(&buf, level)
	require.NoError(t, err)
	if header.OS == 0 {
		header.OS = osUnknown
	}
	z.Header = header
	_, err = z.Write(data)
	require.NoError(t, err)
	require.NoError(t, z.Close())
	return buf.Bytes()
}

func decompress(t testing.TB, stream []byte) ([]byte, *Reader) {
	t.Helper()
	z, err := NewReader(bytes.NewReader(stream))
	require.NoError(t, err)
	out, err := io.ReadAll(z)
	require.NoError(t, err)
	return out, z
}

func TestRoundTrip(t *testing.T) {
	for name, data := range testInputs() {
		for _, level := range []int{NoCompression, BestSpeed, 4, DefaultCompression, BestCompression} {
			t.Run(fmt.Sprintf("%s/level-%d", name, level), func(t *testing.T) {
				stream := compress(t, data, level, Header{})
				out, _ := decompress(t, stream)
				assert.True(t, bytes.Equal(data, out))
			})
		}
	}
}

func TestEmptyInputIsMinimalMember(t *testing.T) {
	stream := compress(t, nil, DefaultCompression, Header{})
	want := []byte{
		0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff,
		0x03, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, want, stream)

	out, _ := decompress(t, stream)
	assert.Empty(t, out)
}

func TestStandardReadersAcceptOutput(t *testing.T) {
	header := Header{
		Name:    "report.txt",
		Comment: "nightly build",
		Extra:   []byte("ab\x02\x00hi"),
		ModTime: time.Unix(1_700_000_000, 0),
		OS:      3,
	}
	for name, data := range testInputs() {
		t.Run(name, func(t *testing.T) {
			stream := compress(t, data, DefaultCompression, header)

			std, err := stdgzip.NewReader(bytes.NewReader(stream))
			require.NoError(t, err)
			out, err := io.ReadAll(std)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, out))
			assert.Equal(t, header.Name, std.Name)
			assert.Equal(t, header.Comment, std.Comment)
			assert.Equal(t, header.Extra, std.Extra)
			assert.True(t, header.ModTime.Equal(std.ModTime))
			assert.Equal(t, header.OS, std.OS)

			kz, err := kgzip.NewReader(bytes.NewReader(stream))
			require.NoError(t, err)
			out, err = io.ReadAll(kz)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, out))
		})
	}
}

func TestDecodesStandardWriters(t *testing.T) {
	for name, data := range testInputs() {
		t.Run(name, func(t *testing.T) {
			var std bytes.Buffer
			sw, err := stdgzip.NewWriterLevel(&std, stdgzip.BestCompression)
			require.NoError(t, err)
			sw.Name = "café.txt"
			sw.Comment = "from compress/gzip"
			sw.ModTime = time.Unix(1_600_000_000, 0)
			_, err = sw.Write(data)
			require.NoError(t, err)
			require.NoError(t, sw.Close())

			out, z := decompress(t, std.Bytes())
			assert.True(t, bytes.Equal(data, out))
			assert.Equal(t, "café.txt", z.Name)
			assert.Equal(t, "from compress/gzip", z.Comment)
			assert.Equal(t, int64(1_600_000_000), z.ModTime.Unix())

			var kb bytes.Buffer
			kw, err := kgzip.NewWriterLevel(&kb, kgzip.BestSpeed)
			require.NoError(t, err)
			_, err = kw.Write(data)
			require.NoError(t, err)
			require.NoError(t, kw.Close())

			out, _ = decompress(t, kb.Bytes())
			assert.True(t, bytes.Equal(data, out))
		})
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	header := Header{
		Name:      "naïve.bin",
		Comment:   "with header crc",
		Extra:     []byte{1, 2, 3},
		ModTime:   time.Unix(1_234_567_890, 0),
		OS:        11,
		HeaderCRC: true,
	}
	stream := compress(t, []byte("payload"), BestSpeed, header)
	out, z := decompress(t, stream)
	assert.Equal(t, "payload", string(out))
	assert.Equal(t, header.Name, z.Name)
	assert.Equal(t, header.Comment, z.Comment)
	assert.Equal(t, header.Extra, z.Extra)
	assert.True(t, header.ModTime.Equal(z.ModTime))
	assert.Equal(t, header.OS, z.OS)
	assert.True(t, z.HeaderCRC)

	std, err := stdgzip.NewReader(bytes.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, header.Name, std.Name)
}

func TestModTimeOutOfRange(t *testing.T) {
	for _, mtime := range []time.Time{
		time.Unix(0, 0),
		time.Unix(-1, 0),
		time.Unix(math.MaxUint32+1, 0),
		time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		stream := compress(t, []byte("payload"), DefaultCompression, Header{ModTime: mtime})
		assert.Equal(t, []byte{0, 0, 0, 0}, stream[4:8], "%v", mtime)
		_, z := decompress(t, stream)
		assert.True(t, z.ModTime.IsZero(), "%v", mtime)
	}

	stream := compress(t, []byte("payload"), DefaultCompression, Header{ModTime: time.Unix(math.MaxUint32, 0)})
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, stream[4:8])
}

func TestHeaderCRCMismatch(t *testing.T) {
	stream := compress(t, []byte("payload"), DefaultCompression, Header{Name: "x", HeaderCRC: true})
	// 10 fixed bytes, "x\x00", then the two CRC bytes.
	stream[12] ^= 0x01
	_, err := NewReader(bytes.NewReader(stream))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestExtraFlags(t *testing.T) {
	assert.Equal(t, byte(2), compress(t, nil, BestCompression, Header{})[8])
	assert.Equal(t, byte(4), compress(t, nil, BestSpeed, Header{})[8])
	assert.Equal(t, byte(0), compress(t, nil, DefaultCompression, Header{})[8])
}

func TestInvalidHeaderStrings(t *testing.T) {
	for _, name := range []string{"snow☃man", "nul\x00inside"} {
		z := NewWriter(io.Discard)
		z.Name = name
		_, err := z.Write([]byte("x"))
		assert.Error(t, err, name)
		assert.Error(t, z.Close())
	}
}

func TestInvalidLevel(t *testing.T) {
	_, err := NewWriterLevel(io.Discard, 10)
	assert.Error(t, err)
	_, err = NewWriterSize(io.Discard, DefaultCompression, 1<<20)
	assert.Error(t, err)
}

func TestUnsupportedFormat(t *testing.T) {
	valid := compress(t, []byte("hello"), DefaultCompression, Header{})
	cases := map[string]func(b []byte){
		"bad-magic":      func(b []byte) { b[0] = 0x1e },
		"bad-second-id":  func(b []byte) { b[1] = 0x00 },
		"bad-method":     func(b []byte) { b[2] = 7 },
		"reserved-flags": func(b []byte) { b[3] |= 0x20 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			stream := bytes.Clone(valid)
			mutate(stream)
			_, err := NewReader(bytes.NewReader(stream))
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestShortHeader(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0x1f, 0x8b, 0x08}))
	assert.ErrorIs(t, err, bitio.ErrUnexpectedEOF)

	_, err = NewReader(bytes.NewReader(nil))
	assert.ErrorIs(t, err, bitio.ErrUnexpectedEOF)
}

func TestTrailerMismatch(t *testing.T) {
	data := []byte("the trailer protects this text")
	valid := compress(t, data, DefaultCompression, Header{})
	n := len(valid)

	badCRC := bytes.Clone(valid)
	badCRC[n-8] ^= 0xff
	z, err := NewReader(bytes.NewReader(badCRC))
	require.NoError(t, err)
	out, err := io.ReadAll(z)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Equal(t, data, out)

	badSize := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(badSize[n-4:], uint32(len(data)+1))
	z, err = NewReader(bytes.NewReader(badSize))
	require.NoError(t, err)
	_, err = io.ReadAll(z)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	short := valid[:n-3]
	z, err = NewReader(bytes.NewReader(short))
	require.NoError(t, err)
	_, err = io.ReadAll(z)
	assert.ErrorIs(t, err, bitio.ErrUnexpectedEOF)
}

// Every single-byte corruption past the fixed header must surface as an
// error rather than as different output.
func TestCorruptionIsDetected(t *testing.T) {
	var text strings.Builder
	for i := 0; text.Len() < 3000; i++ {
		fmt.Fprintf(&text, "record %d of the corruption test\n", i)
	}
	data := []byte(text.String())

	for _, level := range []int{NoCompression, BestSpeed, BestCompression} {
		valid := compress(t, data, level, Header{})
		for i := 10; i < len(valid); i++ {
			stream := bytes.Clone(valid)
			stream[i] ^= 0xff
			z, err := NewReader(bytes.NewReader(stream))
			require.NoError(t, err)
			_, err = io.ReadAll(z)
			require.Error(t, err, "level %d, offset %d", level, i)
			known := errors.Is(err, ErrChecksumMismatch) ||
				errors.Is(err, ErrSizeMismatch) ||
				errors.Is(err, huffman.ErrInvalidCode) ||
				errors.Is(err, flate.ErrTruncatedStream) ||
				errors.Is(err, flate.ErrInvalidBlockType) ||
				errors.Is(err, flate.ErrCorruptInput) ||
				errors.Is(err, bitio.ErrUnexpectedEOF)
			assert.True(t, known, "level %d, offset %d: %v", level, i, err)
		}
	}
}

func TestSecondMemberIsLeftUnread(t *testing.T) {
	first := compress(t, []byte("first member"), DefaultCompression, Header{})
	second := compress(t, []byte("second member"), DefaultCompression, Header{})

	src := bytes.NewReader(append(bytes.Clone(first), second...))
	z, err := NewReader(src)
	require.NoError(t, err)
	out, err := io.ReadAll(z)
	require.NoError(t, err)
	assert.Equal(t, "first member", string(out))
	assert.Equal(t, len(second), src.Len())

	require.NoError(t, z.Reset(src))
	out, err = io.ReadAll(z)
	require.NoError(t, err)
	assert.Equal(t, "second member", string(out))
}

func TestFlushMakesDataReadable(t *testing.T) {
	var buf bytes.Buffer
	z := NewWriter(&buf)
	_, err := z.Write([]byte("first half "))
	require.NoError(t, err)
	require.NoError(t, z.Flush())

	std, err := stdgzip.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	got := make([]byte, len("first half "))
	_, err = io.ReadFull(std, got)
	require.NoError(t, err)
	assert.Equal(t, "first half ", string(got))

	_, err = z.Write([]byte("second half"))
	require.NoError(t, err)
	require.NoError(t, z.Close())

	out, _ := decompress(t, buf.Bytes())
	assert.Equal(t, "first half second half", string(out))
}

func TestWriterReset(t *testing.T) {
	var a, b bytes.Buffer
	z := NewWriter(&a)
	z.Name = "a"
	_, err := z.Write([]byte("one"))
	require.NoError(t, err)
	require.NoError(t, z.Close())

	_, err = z.Write([]byte("late"))
	assert.Error(t, err)

	z.Reset(&b)
	_, err = z.Write([]byte("two"))
	require.NoError(t, err)
	require.NoError(t, z.Close())

	out, r := decompress(t, a.Bytes())
	assert.Equal(t, "one", string(out))
	assert.Equal(t, "a", r.Name)

	out, r = decompress(t, b.Bytes())
	assert.Equal(t, "two", string(out))
	assert.Empty(t, r.Name)
}

func BenchmarkWriter(b *testing.B) {
	data := testInputs()["text"]
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		z := NewWriter(io.Discard)
		_, _ = z.Write(data)
		_ = z.Close()
	}
}
