package gzip

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/FitrahHaque/wzip/compressor/bitio"
	"github.com/FitrahHaque/wzip/compressor/lz"
)

const (
	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8

	flagHdrCrc   = 1 << 1
	flagExtra    = 1 << 2
	flagName     = 1 << 3
	flagComment  = 1 << 4
	flagReserved = 0xe0

	osUnknown = 0xff

	maxHeaderString = 1 << 16
)

const (
	NoCompression      = lz.NoCompression
	BestSpeed          = lz.BestSpeed
	BestCompression    = lz.BestCompression
	DefaultCompression = lz.DefaultCompression
)

var (
	ErrUnsupportedFormat = errors.New("gzip: unsupported format")
	ErrChecksumMismatch  = errors.New("gzip: checksum mismatch")
	ErrSizeMismatch      = errors.New("gzip: size mismatch")
)

// Header is the metadata carried ahead of the compressed data. Strings are
// stored as NUL-terminated Latin-1.
type Header struct {
	Name      string
	Comment   string
	Extra     []byte
	ModTime   time.Time
	OS        byte
	HeaderCRC bool
}

// latin1 encodes s, rejecting characters outside Latin-1 and embedded NULs.
func latin1(s string) ([]byte, error) {
	out := make([]byte, 0, len(s)+1)
	for _, r := range s {
		if r == 0 || r > 0xff {
			return nil, fmt.Errorf("gzip: header string %q is not NUL-free Latin-1", s)
		}
		out = append(out, byte(r))
	}
	return append(out, 0), nil
}

// readString reads a NUL-terminated Latin-1 string and returns it together
// with the raw bytes consumed, terminator included.
func readString(r io.ByteReader) (string, []byte, error) {
	var raw []byte
	needConv := false
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", nil, noEOF(err)
		}
		raw = append(raw, b)
		if b == 0 {
			break
		}
		if b >= 0x80 {
			needConv = true
		}
		if len(raw) > maxHeaderString {
			return "", nil, fmt.Errorf("%w: header string longer than %d bytes", ErrUnsupportedFormat, maxHeaderString)
		}
	}
	s := raw[:len(raw)-1]
	if !needConv {
		return string(s), raw, nil
	}
	runes := make([]rune, len(s))
	for i, b := range s {
		runes[i] = rune(b)
	}
	return string(runes), raw, nil
}

func noEOF(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return bitio.ErrUnexpectedEOF
	}
	return err
}
