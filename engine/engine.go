package engine

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/FitrahHaque/wzip/compressor/flate"
	"github.com/FitrahHaque/wzip/compressor/lz"
)

const copyChunk = 32 * 1024

type Mode int

const (
	ModeAuto Mode = iota
	ModeCompress
	ModeDecompress
)

func (m Mode) String() string {
	switch m {
	case ModeCompress:
		return "compress"
	case ModeDecompress:
		return "decompress"
	default:
		return "auto"
	}
}

// Options configure one compression stream. Name and ModTime only apply to
// gzip.
type Options struct {
	Level     int
	Format    Format
	BlockSize int
	Name      string
	ModTime   time.Time
}

func DefaultOptions() Options {
	return Options{
		Level:     lz.DefaultCompression,
		Format:    FormatGzip,
		BlockSize: flate.DefaultBlockSize,
	}
}

func (o Options) validate() error {
	if _, err := lz.NormalizeLevel(o.Level); err != nil {
		return errors.Wrap(ErrInvalidOptions, err.Error())
	}
	if _, ok := writers[o.Format]; !ok {
		return errors.Wrapf(ErrInvalidOptions, "unknown format %d", o.Format)
	}
	if o.BlockSize < flate.MinBlockSize || o.BlockSize > flate.DefaultBlockSize {
		return errors.Wrapf(ErrInvalidOptions, "block size %d out of range %d..%d", o.BlockSize, flate.MinBlockSize, flate.DefaultBlockSize)
	}
	return nil
}

// Stats describe one finished stream.
type Stats struct {
	Mode   Mode
	Format Format
	In     int64
	Out    int64
}

// Ratio is the output size as a percentage of the input size.
func (s Stats) Ratio() float64 {
	if s.In == 0 {
		return 0
	}
	return float64(s.Out) / float64(s.In) * 100
}

// Engine drives whole streams through a codec. It holds no per-stream state
// and is safe for concurrent use.
type Engine struct {
	opts Options
	log  *logrus.Entry
}

func New(opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		opts: opts,
		log:  logrus.WithField("pkg", "engine"),
	}, nil
}

func (e *Engine) Options() Options {
	return e.opts
}

// Session is one open compression stream. Flush forces a sync point that
// lets a reader decode everything written so far.
type Session struct {
	w      compressor
	out    *countingWriter
	in     int64
	format Format
}

func (e *Engine) NewSession(dst io.Writer) (*Session, error) {
	return e.newSession(dst, e.opts)
}

func (e *Engine) newSession(dst io.Writer, opts Options) (*Session, error) {
	out := &countingWriter{w: dst}
	w, err := writers[opts.Format](out, opts)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidOptions, "unable to create %s writer: %s", opts.Format, err)
	}
	return &Session{w: w, out: out, format: opts.Format}, nil
}

func (s *Session) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.in += int64(n)
	return n, err
}

func (s *Session) Flush() error {
	return s.w.Flush()
}

func (s *Session) Close() error {
	return s.w.Close()
}

func (s *Session) Stats() Stats {
	return Stats{Mode: ModeCompress, Format: s.format, In: s.in, Out: s.out.n}
}

// Compress reads src to the end and writes one complete stream to dst.
func (e *Engine) Compress(ctx context.Context, src io.Reader, dst io.Writer) (Stats, error) {
	return e.compress(ctx, src, dst, e.opts)
}

func (e *Engine) compress(ctx context.Context, src io.Reader, dst io.Writer, opts Options) (Stats, error) {
	llog := e.log.WithFields(logrus.Fields{"method": "compress", "format": opts.Format})

	s, err := e.newSession(dst, opts)
	if err != nil {
		return Stats{}, err
	}
	if _, err := copyContext(ctx, s, src); err != nil {
		return s.Stats(), errors.Wrap(err, "unable to compress input")
	}
	if err := s.Close(); err != nil {
		return s.Stats(), errors.Wrap(err, "unable to finish stream")
	}

	stats := s.Stats()
	llog.Debugf("compressed %d bytes into %d", stats.In, stats.Out)
	return stats, nil
}

// Decompress decodes one stream from src into dst. On error dst holds the
// output produced before the failure, which must not be treated as
// complete.
func (e *Engine) Decompress(ctx context.Context, src io.Reader, dst io.Writer) (Stats, error) {
	return e.decompress(ctx, src, dst, e.opts.Format)
}

func (e *Engine) decompress(ctx context.Context, src io.Reader, dst io.Writer, format Format) (Stats, error) {
	llog := e.log.WithFields(logrus.Fields{"method": "decompress", "format": format})

	in := &countingReader{r: bufio.NewReader(src)}
	stats := Stats{Mode: ModeDecompress, Format: format}
	r, err := readers[format](in)
	if err != nil {
		stats.In = in.n
		return stats, errors.Wrapf(err, "unable to read %s header", format)
	}
	defer r.Close()

	stats.Out, err = copyContext(ctx, dst, r)
	stats.In = in.n
	if err != nil {
		return stats, errors.Wrap(err, "unable to decompress input")
	}
	llog.Debugf("decompressed %d bytes into %d", stats.In, stats.Out)
	return stats, nil
}

// Resolve settles ModeAuto by sniffing the head of src: a stream in the
// configured format is decompressed, anything else is compressed. The
// returned reader replays the sniffed bytes and must be used in place of
// src. Other modes are returned unchanged.
func (e *Engine) Resolve(mode Mode, src io.Reader) (Mode, io.Reader, error) {
	if mode != ModeAuto {
		return mode, src, nil
	}
	br := bufio.NewReaderSize(src, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return mode, br, errors.Wrap(err, "unable to read input")
	}
	mode = ModeCompress
	if Detect(head, e.opts.Format) {
		mode = ModeDecompress
	}
	e.log.WithField("method", "Resolve").Debugf("auto mode selected %s", mode)
	return mode, br, nil
}

// Run compresses or decompresses src, settling ModeAuto through Resolve.
func (e *Engine) Run(ctx context.Context, mode Mode, src io.Reader, dst io.Writer) (Stats, error) {
	mode, src, err := e.Resolve(mode, src)
	if err != nil {
		return Stats{}, err
	}
	if mode == ModeDecompress {
		return e.Decompress(ctx, src, dst)
	}
	return e.Compress(ctx, src, dst)
}

// copyContext is io.Copy that stops between chunks once ctx is done.
func copyContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, copyChunk)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			m, werr := dst.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// countingReader counts the bytes a decoder takes from the buffer, not what
// the buffer has read ahead from the source.
type countingReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}
