package engine

import (
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/FitrahHaque/wzip/compressor/flate"
	"github.com/FitrahHaque/wzip/compressor/gzip"
	"github.com/FitrahHaque/wzip/compressor/zlib"
)

type Format int

const (
	FormatGzip Format = iota
	FormatZlib
	FormatDeflate
)

var Formats = [...]string{
	"gzip",
	"zlib",
	"deflate",
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(Formats) {
		return "unknown"
	}
	return Formats[f]
}

// ContentType is the media type used when serving a stream of this format.
func (f Format) ContentType() string {
	switch f {
	case FormatGzip:
		return "application/gzip"
	case FormatZlib:
		return "application/zlib"
	default:
		return "application/octet-stream"
	}
}

func ParseFormat(s string) (Format, error) {
	for i, name := range Formats {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Format(i), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidOptions, "unknown format %q, choices include: %s", s, strings.Join(Formats[:], ", "))
}

// compressor is the write side shared by every container.
type compressor interface {
	io.WriteCloser
	Flush() error
}

var writers = map[Format]func(w io.Writer, opts Options) (compressor, error){
	FormatGzip: func(w io.Writer, opts Options) (compressor, error) {
		z, err := gzip.NewWriterSize(w, opts.Level, opts.BlockSize)
		if err != nil {
			return nil, err
		}
		z.Name = opts.Name
		z.ModTime = opts.ModTime
		return z, nil
	},
	FormatZlib: func(w io.Writer, opts Options) (compressor, error) {
		return zlib.NewWriterSize(w, opts.Level, opts.BlockSize)
	},
	FormatDeflate: func(w io.Writer, opts Options) (compressor, error) {
		return flate.NewWriterSize(w, opts.Level, opts.BlockSize)
	},
}

var readers = map[Format]func(r io.Reader) (io.ReadCloser, error){
	FormatGzip: func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	FormatZlib: func(r io.Reader) (io.ReadCloser, error) {
		return zlib.NewReader(r)
	},
	FormatDeflate: func(r io.Reader) (io.ReadCloser, error) {
		return flate.NewReader(r), nil
	},
}

// sniffLen is how much input Detect looks at.
const sniffLen = 3072

// Detect reports whether head looks like the start of a stream in format f.
// Raw deflate has no signature and is never detected.
func Detect(head []byte, f Format) bool {
	switch f {
	case FormatGzip:
		return mimetype.Detect(head).Is(FormatGzip.ContentType())
	case FormatZlib:
		return len(head) >= 2 && zlib.ValidHeader([2]byte{head[0], head[1]})
	default:
		return false
	}
}
