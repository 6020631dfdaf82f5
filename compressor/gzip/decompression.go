package gzip

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/FitrahHaque/wzip/compressor/checksum"
	"github.com/FitrahHaque/wzip/compressor/flate"
)

type byteReader interface {
	io.Reader
	io.ByteReader
}

// Reader decodes one gzip member. Header is populated by NewReader. After
// the trailer has been verified Read returns io.EOF; bytes following the
// member are left unread.
type Reader struct {
	Header
	r            byteReader
	decompressor *flate.Reader
	digest       uint32
	size         uint32
	err          error
}

func NewReader(r io.Reader) (*Reader, error) {
	z := new(Reader)
	if err := z.Reset(r); err != nil {
		return nil, err
	}
	return z, nil
}

// Reset reads a new header from r. The Reader does not wrap r in a buffer
// when it already implements io.ByteReader.
func (z *Reader) Reset(r io.Reader) error {
	if rr, ok := r.(byteReader); ok {
		z.r = rr
	} else {
		z.r = bufio.NewReader(r)
	}
	z.Header = Header{}
	z.digest, z.size = 0, 0
	if z.err = z.readHeader(); z.err != nil {
		return z.err
	}
	if z.decompressor == nil {
		z.decompressor = flate.NewReader(z.r)
	} else {
		z.decompressor.Reset(z.r)
	}
	return nil
}

func (z *Reader) readHeader() error {
	var header [10]byte
	if _, err := io.ReadFull(z.r, header[:]); err != nil {
		return fmt.Errorf("gzip: reading header: %w", noEOF(err))
	}
	if header[0] != gzipID1 || header[1] != gzipID2 {
		return fmt.Errorf("%w: bad magic %#02x %#02x", ErrUnsupportedFormat, header[0], header[1])
	}
	if header[2] != gzipDeflate {
		return fmt.Errorf("%w: compression method %d", ErrUnsupportedFormat, header[2])
	}
	flg := header[3]
	if flg&flagReserved != 0 {
		return fmt.Errorf("%w: reserved flag bits %#02x", ErrUnsupportedFormat, flg&flagReserved)
	}
	if t := binary.LittleEndian.Uint32(header[4:8]); t > 0 {
		z.ModTime = time.Unix(int64(t), 0)
	}
	z.OS = header[9]
	digest := checksum.CRC32(header[:])

	if flg&flagExtra != 0 {
		var size [2]byte
		if _, err := io.ReadFull(z.r, size[:]); err != nil {
			return fmt.Errorf("gzip: reading extra field: %w", noEOF(err))
		}
		extra := make([]byte, binary.LittleEndian.Uint16(size[:]))
		if _, err := io.ReadFull(z.r, extra); err != nil {
			return fmt.Errorf("gzip: reading extra field: %w", noEOF(err))
		}
		digest = checksum.UpdateCRC32(digest, size[:])
		digest = checksum.UpdateCRC32(digest, extra)
		z.Extra = extra
	}
	if flg&flagName != 0 {
		s, raw, err := readString(z.r)
		if err != nil {
			return fmt.Errorf("gzip: reading name: %w", err)
		}
		digest = checksum.UpdateCRC32(digest, raw)
		z.Name = s
	}
	if flg&flagComment != 0 {
		s, raw, err := readString(z.r)
		if err != nil {
			return fmt.Errorf("gzip: reading comment: %w", err)
		}
		digest = checksum.UpdateCRC32(digest, raw)
		z.Comment = s
	}
	if flg&flagHdrCrc != 0 {
		var crc [2]byte
		if _, err := io.ReadFull(z.r, crc[:]); err != nil {
			return fmt.Errorf("gzip: reading header crc: %w", noEOF(err))
		}
		if got := binary.LittleEndian.Uint16(crc[:]); got != uint16(digest) {
			return fmt.Errorf("%w: header crc %#04x, computed %#04x", ErrChecksumMismatch, got, uint16(digest))
		}
		z.HeaderCRC = true
	}
	return nil
}

func (z *Reader) Read(p []byte) (int, error) {
	if z.err != nil {
		return 0, z.err
	}
	n, err := z.decompressor.Read(p)
	z.digest = checksum.UpdateCRC32(z.digest, p[:n])
	z.size += uint32(n)
	if err != io.EOF {
		z.err = err
		return n, err
	}

	var trailer [8]byte
	if _, err := io.ReadFull(z.r, trailer[:]); err != nil {
		z.err = fmt.Errorf("gzip: reading trailer: %w", noEOF(err))
		return n, z.err
	}
	if crc := binary.LittleEndian.Uint32(trailer[0:4]); crc != z.digest {
		z.err = fmt.Errorf("%w: trailer %#08x, computed %#08x", ErrChecksumMismatch, crc, z.digest)
		return n, z.err
	}
	if size := binary.LittleEndian.Uint32(trailer[4:8]); size != z.size {
		z.err = fmt.Errorf("%w: trailer %d, counted %d", ErrSizeMismatch, size, z.size)
		return n, z.err
	}
	z.err = io.EOF
	return n, io.EOF
}

func (z *Reader) Close() error {
	return nil
}
