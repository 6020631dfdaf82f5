package checksum

import (
	"hash/adler32"
	"hash/crc32"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32KnownVectors(t *testing.T) {
	assert.Equal(t, uint32(0), CRC32(nil))
	assert.Equal(t, uint32(0xcbf43926), CRC32([]byte("123456789")))
	assert.Equal(t, uint32(0x414fa339), CRC32([]byte("The quick brown fox jumps over the lazy dog")))
}

func TestCRC32Incremental(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := make([]byte, 100_000)
	rng.Read(data)

	state := uint32(0)
	for off := 0; off < len(data); {
		n := min(rng.Intn(4096)+1, len(data)-off)
		state = UpdateCRC32(state, data[off:off+n])
		off += n
	}
	assert.Equal(t, crc32.ChecksumIEEE(data), state)
	assert.Equal(t, crc32.ChecksumIEEE(data), CRC32(data))
}

func TestCRC32Hash(t *testing.T) {
	h := NewCRC32()
	_, _ = h.Write([]byte("1234"))
	_, _ = h.Write([]byte("56789"))
	assert.Equal(t, uint32(0xcbf43926), h.Sum32())
	assert.Equal(t, []byte{0xcb, 0xf4, 0x39, 0x26}, h.Sum(nil))
	h.Reset()
	assert.Equal(t, uint32(0), h.Sum32())
}

func TestAdler32KnownVectors(t *testing.T) {
	assert.Equal(t, uint32(1), Adler32(nil))
	assert.Equal(t, uint32(0x11e60398), Adler32([]byte("Wikipedia")))
}

func TestAdler32MatchesStdlib(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, size := range []int{1, 100, adlerNMax - 1, adlerNMax, adlerNMax + 1, 3 * adlerNMax, 70_000} {
		data := make([]byte, size)
		rng.Read(data)
		assert.Equal(t, adler32.Checksum(data), Adler32(data), "size %d", size)

		h := NewAdler32()
		_, _ = h.Write(data[:size/2])
		_, _ = h.Write(data[size/2:])
		assert.Equal(t, adler32.Checksum(data), h.Sum32(), "size %d", size)
	}

	ones := make([]byte, 100_000)
	for i := range ones {
		ones[i] = 0xff
	}
	assert.Equal(t, adler32.Checksum(ones), Adler32(ones))
}
