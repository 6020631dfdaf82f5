package bitio

import (
	"bufio"
	"errors"
	"io"
)

// ErrUnexpectedEOF is returned when the input ends while more bits are
// structurally required.
var ErrUnexpectedEOF = errors.New("bitio: unexpected end of input")

// Reader pulls bits least significant bit first. It fetches one byte at a
// time, so once the caller aligns to a byte boundary the underlying reader
// is positioned exactly after the last byte that held consumed bits.
type Reader struct {
	input      io.ByteReader
	bitsHolder uint64
	bitsCount  uint
	consumed   int64
}

// NewReader wraps r in a bufio.Reader unless it already implements
// io.ByteReader.
func NewReader(r io.Reader) *Reader {
	br := &Reader{}
	br.Reset(r)
	return br
}

func (br *Reader) Reset(r io.Reader) {
	input, ok := r.(io.ByteReader)
	if !ok {
		input = bufio.NewReader(r)
	}
	br.input = input
	br.bitsHolder, br.bitsCount = 0, 0
	br.consumed = 0
}

// ReadBits consumes nbits (at most 32) and returns them in the low bits of
// the result.
func (br *Reader) ReadBits(nbits uint) (uint32, error) {
	if nbits > 32 {
		return 0, errors.New("bitio: cannot read more than 32 bits at once")
	}
	for br.bitsCount < nbits {
		b, err := br.input.ReadByte()
		if err != nil {
			return 0, noEOF(err)
		}
		br.consumed++
		br.bitsHolder |= uint64(b) << br.bitsCount
		br.bitsCount += 8
	}
	value := uint32(br.bitsHolder & (uint64(1)<<nbits - 1))
	br.bitsHolder >>= nbits
	br.bitsCount -= nbits
	return value, nil
}

// AlignToByte discards the bits left in the current byte.
func (br *Reader) AlignToByte() {
	drop := br.bitsCount % 8
	br.bitsHolder >>= drop
	br.bitsCount -= drop
}

// ReadFull fills p with whole bytes. The reader must be byte aligned.
func (br *Reader) ReadFull(p []byte) error {
	if br.bitsCount%8 != 0 {
		return errUnaligned
	}
	n := 0
	for br.bitsCount > 0 && n < len(p) {
		p[n] = byte(br.bitsHolder)
		br.bitsHolder >>= 8
		br.bitsCount -= 8
		n++
	}
	if n == len(p) {
		return nil
	}
	if r, ok := br.input.(io.Reader); ok {
		m, err := io.ReadFull(r, p[n:])
		br.consumed += int64(m)
		if err != nil {
			return noEOF(err)
		}
		return nil
	}
	for ; n < len(p); n++ {
		b, err := br.input.ReadByte()
		if err != nil {
			return noEOF(err)
		}
		br.consumed++
		p[n] = b
	}
	return nil
}

// Consumed reports how many bytes were taken from the underlying reader.
func (br *Reader) Consumed() int64 {
	return br.consumed
}

func noEOF(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrUnexpectedEOF
	}
	return err
}
