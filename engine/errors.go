package engine

import (
	"context"
	"errors"

	"github.com/FitrahHaque/wzip/compressor/bitio"
	"github.com/FitrahHaque/wzip/compressor/flate"
	"github.com/FitrahHaque/wzip/compressor/gzip"
	"github.com/FitrahHaque/wzip/compressor/huffman"
	"github.com/FitrahHaque/wzip/compressor/zlib"
)

var ErrInvalidOptions = errors.New("invalid options")

// ErrorKind collapses codec and I/O failures into the categories callers
// act on.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInvalidOptions
	KindIO
	KindCanceled
	KindUnexpectedEOF
	KindInvalidCode
	KindInvalidBlockType
	KindTruncatedStream
	KindCorruptInput
	KindUnsupportedFormat
	KindChecksumMismatch
	KindSizeMismatch
)

var kindNames = [...]string{
	"none",
	"invalid options",
	"io",
	"canceled",
	"unexpected eof",
	"invalid code",
	"invalid block type",
	"truncated stream",
	"corrupt input",
	"unsupported format",
	"checksum mismatch",
	"size mismatch",
}

func (k ErrorKind) String() string {
	return kindNames[k]
}

// BadInput is true for kinds caused by corrupt or foreign input.
func (k ErrorKind) BadInput() bool {
	return k >= KindUnexpectedEOF && k <= KindUnsupportedFormat
}

// Integrity is true when the data decoded but failed its trailer checks.
func (k ErrorKind) Integrity() bool {
	return k == KindChecksumMismatch || k == KindSizeMismatch
}

// Classify maps err to its kind. A truncated deflate stream also matches
// bitio.ErrUnexpectedEOF, so it is tested first.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidOptions):
		return KindInvalidOptions
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, flate.ErrTruncatedStream):
		return KindTruncatedStream
	case errors.Is(err, bitio.ErrUnexpectedEOF):
		return KindUnexpectedEOF
	case errors.Is(err, huffman.ErrInvalidCode):
		return KindInvalidCode
	case errors.Is(err, flate.ErrInvalidBlockType):
		return KindInvalidBlockType
	case errors.Is(err, flate.ErrCorruptInput):
		return KindCorruptInput
	case errors.Is(err, gzip.ErrUnsupportedFormat), errors.Is(err, zlib.ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, gzip.ErrChecksumMismatch), errors.Is(err, zlib.ErrChecksumMismatch):
		return KindChecksumMismatch
	case errors.Is(err, gzip.ErrSizeMismatch):
		return KindSizeMismatch
	default:
		return KindIO
	}
}
