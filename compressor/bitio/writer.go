package bitio

import (
	"errors"
	"io"
)

var errUnaligned = errors.New("bitio: byte write at unaligned position")

// Writer packs values into a byte stream least significant bit first, the
// bit order used by DEFLATE. Errors are sticky: after the first failure every
// call is a no-op and Err reports it.
type Writer struct {
	output     io.Writer
	bitsHolder uint64
	bitsCount  uint
	pending    [256]byte
	npending   int
	written    int64
	err        error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{output: w}
}

func (bw *Writer) Reset(w io.Writer) {
	bw.output = w
	bw.bitsHolder, bw.bitsCount = 0, 0
	bw.npending = 0
	bw.written = 0
	bw.err = nil
}

// WriteBits appends the low nbits of value. nbits must not exceed 32.
func (bw *Writer) WriteBits(value uint32, nbits uint) {
	if bw.err != nil || nbits == 0 {
		return
	}
	if nbits > 32 {
		bw.err = errors.New("bitio: cannot write more than 32 bits at once")
		return
	}
	mask := uint32(uint64(1)<<nbits - 1)
	bw.bitsHolder |= uint64(value&mask) << bw.bitsCount
	bw.bitsCount += nbits
	for bw.bitsCount >= 8 {
		bw.pending[bw.npending] = byte(bw.bitsHolder)
		bw.npending++
		bw.bitsHolder >>= 8
		bw.bitsCount -= 8
		if bw.npending == len(bw.pending) {
			bw.flushPending()
		}
	}
}

// FlushAlign pads the partial byte with zero bits.
func (bw *Writer) FlushAlign() {
	if bw.bitsCount > 0 {
		bw.WriteBits(0, 8-bw.bitsCount)
	}
}

// WriteBytes copies p verbatim. The writer must be byte aligned.
func (bw *Writer) WriteBytes(p []byte) {
	if bw.err != nil {
		return
	}
	if bw.bitsCount != 0 {
		bw.err = errUnaligned
		return
	}
	bw.flushPending()
	if bw.err != nil {
		return
	}
	n, err := bw.output.Write(p)
	bw.written += int64(n)
	if err != nil {
		bw.err = err
	}
}

// Flush hands every completed byte to the underlying writer. Bits of an
// unfinished byte stay buffered.
func (bw *Writer) Flush() error {
	bw.flushPending()
	return bw.err
}

func (bw *Writer) flushPending() {
	if bw.err != nil || bw.npending == 0 {
		return
	}
	n, err := bw.output.Write(bw.pending[:bw.npending])
	bw.written += int64(n)
	if err != nil {
		bw.err = err
	}
	bw.npending = 0
}

// PendingBits reports how many bits of an unfinished byte are buffered.
func (bw *Writer) PendingBits() uint {
	return bw.bitsCount
}

// Written reports how many bytes reached the underlying writer.
func (bw *Writer) Written() int64 {
	return bw.written
}

func (bw *Writer) Err() error {
	return bw.err
}
