package gzip

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/FitrahHaque/wzip/compressor/checksum"
	"github.com/FitrahHaque/wzip/compressor/flate"
)

var errWriterClosed = errors.New("gzip: write to closed writer")

// Writer produces a single gzip member. Set Header fields before the first
// Write, Flush or Close.
type Writer struct {
	Header
	w           io.Writer
	level       int
	compressor  *flate.Writer
	digest      uint32
	size        uint32
	wroteHeader bool
	closed      bool
	err         error
}

func NewWriter(w io.Writer) *Writer {
	z, _ := NewWriterLevel(w, DefaultCompression)
	return z
}

func NewWriterLevel(w io.Writer, level int) (*Writer, error) {
	return NewWriterSize(w, level, flate.DefaultBlockSize)
}

// NewWriterSize also bounds the uncompressed bytes per deflate block.
func NewWriterSize(w io.Writer, level, blockSize int) (*Writer, error) {
	compressor, err := flate.NewWriterSize(w, level, blockSize)
	if err != nil {
		return nil, err
	}
	return &Writer{
		Header:     Header{OS: osUnknown},
		w:          w,
		level:      compressor.Level(),
		compressor: compressor,
	}, nil
}

// Reset starts a new member on w, keeping the level but clearing the header.
func (z *Writer) Reset(w io.Writer) {
	z.Header = Header{OS: osUnknown}
	z.w = w
	z.compressor.Reset(w)
	z.digest, z.size = 0, 0
	z.wroteHeader, z.closed = false, false
	z.err = nil
}

func (z *Writer) writeHeader() error {
	z.wroteHeader = true
	header := [10]byte{
		gzipID1, gzipID2, // ID1, ID2
		gzipDeflate,      // CM = deflate
		0,                // FLG
		0, 0, 0, 0,       // MTIME
		0,                // XFL
		z.OS,             // OS
	}
	if z.Extra != nil {
		header[3] |= flagExtra
	}
	if z.Name != "" {
		header[3] |= flagName
	}
	if z.Comment != "" {
		header[3] |= flagComment
	}
	if z.HeaderCRC {
		header[3] |= flagHdrCrc
	}
	// MTIME is an unsigned 32-bit count of seconds; anything it cannot hold
	// is written as 0, meaning no timestamp.
	if mtime := z.ModTime.Unix(); mtime > 0 && mtime <= math.MaxUint32 {
		binary.LittleEndian.PutUint32(header[4:8], uint32(mtime))
	}
	switch z.level {
	case BestCompression:
		header[8] = 2
	case BestSpeed:
		header[8] = 4
	}

	out := header[:]
	if z.Extra != nil {
		if len(z.Extra) > 0xffff {
			return fmt.Errorf("gzip: extra field of %d bytes is too large", len(z.Extra))
		}
		out = binary.LittleEndian.AppendUint16(out, uint16(len(z.Extra)))
		out = append(out, z.Extra...)
	}
	if z.Name != "" {
		name, err := latin1(z.Name)
		if err != nil {
			return err
		}
		out = append(out, name...)
	}
	if z.Comment != "" {
		comment, err := latin1(z.Comment)
		if err != nil {
			return err
		}
		out = append(out, comment...)
	}
	if z.HeaderCRC {
		out = binary.LittleEndian.AppendUint16(out, uint16(checksum.CRC32(out)))
	}
	_, err := z.w.Write(out)
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
	z.digest = checksum.UpdateCRC32(z.digest, p)
	z.size += uint32(len(p))
	n, err := z.compressor.Write(p)
	if err != nil {
		z.err = err
	}
	return n, err
}

// Flush emits a sync point: all data written so far can be decoded from the
// output without ending the member.
func (z *Writer) Flush() error {
	if err := z.ensureHeader(); err != nil {
		return err
	}
	z.err = z.compressor.Flush()
	return z.err
}

// Close ends the deflate stream and writes the CRC-32 and size trailer. It
// does not close the underlying writer.
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
	var trailer [8]byte
	binary.LittleEndian.PutUint32(trailer[0:4], z.digest)
	binary.LittleEndian.PutUint32(trailer[4:8], z.size)
	_, z.err = z.w.Write(trailer[:])
	return z.err
}
