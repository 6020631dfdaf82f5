// Package zlib wraps the deflate codec in the RFC 1950 container: a two byte
// header and a big-endian Adler-32 trailer.
package zlib

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/FitrahHaque/wzip/compressor/bitio"
	"github.com/FitrahHaque/wzip/compressor/checksum"
	"github.com/FitrahHaque/wzip/compressor/flate"
	"github.com/FitrahHaque/wzip/compressor/lz"
)

const (
	zlibDeflate   = 8
	zlibMaxWindow = 7
	flagDict      = 1 << 5
)

var (
	ErrUnsupportedFormat = errors.New("zlib: unsupported format")
	ErrChecksumMismatch  = errors.New("zlib: checksum mismatch")
)

var errWriterClosed = errors.New("zlib: write to closed writer")

type Writer struct {
	w           io.Writer
	level       int
	compressor  *flate.Writer
	digest      uint32
	wroteHeader bool
	closed      bool
	err         error
}

func NewWriter(w io.Writer) *Writer {
	z, _ := NewWriterLevel(w, lz.DefaultCompression)
	return z
}

func NewWriterLevel(w io.Writer, level int) (*Writer, error) {
	return NewWriterSize(w, level, flate.DefaultBlockSize)
}

func NewWriterSize(w io.Writer, level, blockSize int) (*Writer, error) {
	compressor, err := flate.NewWriterSize(w, level, blockSize)
	if err != nil {
		return nil, err
	}
	return &Writer{w: w, level: compressor.Level(), compressor: compressor, digest: 1}, nil
}

func (z *Writer) Reset(w io.Writer) {
	z.w = w
	z.compressor.Reset(w)
	z.digest = 1
	z.wroteHeader, z.closed = false, false
	z.err = nil
}

// writeHeader emits CMF and FLG. FLEVEL follows the level buckets used by
// zlib itself.
func (z *Writer) writeHeader() error {
	z.wroteHeader = true
	var header [2]byte
	header[0] = zlibMaxWindow<<4 | zlibDeflate
	switch {
	case z.level <= lz.BestSpeed:
		header[1] = 0 << 6
	case z.level < 6:
		header[1] = 1 << 6
	case z.level == 6:
		header[1] = 2 << 6
	default:
		header[1] = 3 << 6
	}
	header[1] += uint8(31 - binary.BigEndian.Uint16(header[:])%31)
	_, err := z.w.Write(header[:])
	return err
}

func (z *Writer) ensureHeader() error {
	if z.err != nil {
		return z.err
	}
	if z.closed {
		return errWriterClosed
	}
	if !z.wroteHeader {
		z.err = z.writeHeader()
	}
	return z.err
}

func (z *Writer) Write(p []byte) (int, error) {
	if err := z.ensureHeader(); err != nil {
		return 0, err
	}
	z.digest = checksum.UpdateAdler32(z.digest, p)
	n, err := z.compressor.Write(p)
	if err != nil {
		z.err = err
	}
	return n, err
}

func (z *Writer) Flush() error {
	if err := z.ensureHeader(); err != nil {
		return err
	}
	z.err = z.compressor.Flush()
	return z.err
}

func (z *Writer) Close() error {
	if z.closed {
		return z.err
	}
	if err := z.ensureHeader(); err != nil {
		z.closed = true
		return err
	}
	z.closed = true
	if z.err = z.compressor.Close(); z.err != nil {
		return z.err
	}
	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], z.digest)
	_, z.err = z.w.Write(trailer[:])
	return z.err
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

// Reader decodes one zlib stream and stops after the Adler-32 trailer.
type Reader struct {
	r            byteReader
	decompressor *flate.Reader
	digest       uint32
	err          error
}

func NewReader(r io.Reader) (*Reader, error) {
	z := new(Reader)
	if err := z.Reset(r); err != nil {
		return nil, err
	}
	return z, nil
}

func (z *Reader) Reset(r io.Reader) error {
	if rr, ok := r.(byteReader); ok {
		z.r = rr
	} else {
		z.r = bufio.NewReader(r)
	}
	z.digest = 1
	var header [2]byte
	if _, err := io.ReadFull(z.r, header[:]); err != nil {
		z.err = fmt.Errorf("zlib: reading header: %w", noEOF(err))
		return z.err
	}
	z.err = checkHeader(header)
	if z.err != nil {
		return z.err
	}
	if z.decompressor == nil {
		z.decompressor = flate.NewReader(z.r)
	} else {
		z.decompressor.Reset(z.r)
	}
	return nil
}

// ValidHeader reports whether header starts a stream this package decodes.
func ValidHeader(header [2]byte) bool {
	return checkHeader(header) == nil
}

func checkHeader(header [2]byte) error {
	if header[0]&0x0f != zlibDeflate || header[0]>>4 > zlibMaxWindow {
		return fmt.Errorf("%w: CMF %#02x", ErrUnsupportedFormat, header[0])
	}
	if binary.BigEndian.Uint16(header[:])%31 != 0 {
		return fmt.Errorf("%w: header check bits", ErrUnsupportedFormat)
	}
	if header[1]&flagDict != 0 {
		return fmt.Errorf("%w: preset dictionary", ErrUnsupportedFormat)
	}
	return nil
}

func (z *Reader) Read(p []byte) (int, error) {
	if z.err != nil {
		return 0, z.err
	}
	n, err := z.decompressor.Read(p)
	z.digest = checksum.UpdateAdler32(z.digest, p[:n])
	if err != io.EOF {
		z.err = err
		return n, err
	}

	var trailer [4]byte
	if _, err := io.ReadFull(z.r, trailer[:]); err != nil {
		z.err = fmt.Errorf("zlib: reading trailer: %w", noEOF(err))
		return n, z.err
	}
	if sum := binary.BigEndian.Uint32(trailer[:]); sum != z.digest {
		z.err = fmt.Errorf("%w: trailer %#08x, computed %#08x", ErrChecksumMismatch, sum, z.digest)
		return n, z.err
	}
	z.err = io.EOF
	return n, io.EOF
}

func (z *Reader) Close() error {
	return nil
}

func noEOF(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return bitio.ErrUnexpectedEOF
	}
	return err
}
