package flate

import (
	"errors"
	"fmt"
	"io"

	"github.com/FitrahHaque/wzip/compressor/bitio"
	"github.com/FitrahHaque/wzip/compressor/lz"
)

const (
	// DefaultBlockSize is also the largest accepted block size, so a block's
	// input always fits one stored block.
	DefaultBlockSize = lz.WindowSize
	MinBlockSize     = 1 << 10
	maxStoredLen     = 1<<16 - 1
)

var errWriterClosed = errors.New("flate: write to closed writer")

// Writer is a DEFLATE compression session. It owns the match window, the
// current block's tokens and the bit accumulator; it must not be shared
// between goroutines.
type Writer struct {
	bw        *bitio.Writer
	level     int
	blockSize int
	matcher   *lz.Matcher // nil at level 0

	tokens   []lz.Token
	raw      []byte
	litFreq  [numLitLen]int
	distFreq [numDist]int

	closed bool
	err    error
}

// NewWriter returns a Writer compressing at level 0..9, or -1 for the
// default level.
func NewWriter(w io.Writer, level int) (*Writer, error) {
	return NewWriterSize(w, level, DefaultBlockSize)
}

// NewWriterSize is NewWriter with an explicit bound on the input bytes per
// block.
func NewWriterSize(w io.Writer, level, blockSize int) (*Writer, error) {
	level, err := lz.NormalizeLevel(level)
	if err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}
	if blockSize < MinBlockSize || blockSize > DefaultBlockSize {
		return nil, fmt.Errorf("flate: block size %d out of range %d..%d", blockSize, MinBlockSize, DefaultBlockSize)
	}
	f := &Writer{
		bw:        bitio.NewWriter(w),
		level:     level,
		blockSize: blockSize,
		raw:       make([]byte, 0, blockSize+lz.MaxMatch),
	}
	if level > lz.NoCompression {
		if f.matcher, err = lz.NewMatcher(level); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Reset discards the session state and starts a new stream on w with the
// same settings.
func (f *Writer) Reset(w io.Writer) {
	f.bw.Reset(w)
	if f.matcher != nil {
		f.matcher.Reset()
	}
	f.tokens = f.tokens[:0]
	f.raw = f.raw[:0]
	f.closed = false
	f.err = nil
}

func (f *Writer) Level() int {
	return f.level
}

func (f *Writer) Write(p []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.closed {
		return 0, errWriterClosed
	}
	n := len(p)
	if f.matcher == nil {
		for len(p) > 0 {
			k := min(len(p), f.blockSize-len(f.raw))
			f.raw = append(f.raw, p[:k]...)
			p = p[k:]
			if len(f.raw) >= f.blockSize {
				f.writeBlock(false)
			}
		}
	} else {
		for len(p) > 0 {
			k := f.matcher.Fill(p)
			p = p[k:]
			f.matcher.Tokenize(false, f.addToken)
		}
	}
	if err := f.check(); err != nil {
		return 0, err
	}
	return n, nil
}

func (f *Writer) check() error {
	if f.err == nil {
		f.err = f.bw.Err()
	}
	return f.err
}

func (f *Writer) addToken(t lz.Token, covered []byte) {
	f.tokens = append(f.tokens, t)
	f.raw = append(f.raw, covered...)
	if len(f.raw) >= f.blockSize {
		f.writeBlock(false)
	}
}

// Flush ends the current block and appends an empty stored block, leaving the
// output byte aligned at a point where a decoder can return everything
// written so far. The stream stays open.
func (f *Writer) Flush() error {
	if f.err != nil {
		return f.err
	}
	if f.closed {
		return nil
	}
	if f.matcher != nil {
		f.matcher.Tokenize(true, f.addToken)
	}
	if len(f.raw) > 0 {
		f.writeBlock(false)
	}
	f.writeStored(nil, false)
	if err := f.check(); err != nil {
		return err
	}
	f.err = f.bw.Flush()
	return f.err
}

// Close emits the final block and flushes the output. It does not close the
// underlying writer.
func (f *Writer) Close() error {
	if f.closed {
		return f.err
	}
	f.closed = true
	if f.err != nil {
		return f.err
	}
	if f.matcher != nil {
		f.matcher.Tokenize(true, f.addToken)
	}
	f.writeBlock(true)
	f.bw.FlushAlign()
	if err := f.check(); err != nil {
		return err
	}
	f.err = f.bw.Flush()
	return f.err
}

func (f *Writer) writeBlock(final bool) {
	switch {
	case len(f.raw) == 0:
		if final {
			f.writeEmptyFixed()
		}
	case f.matcher == nil:
		f.writeStored(f.raw, final)
	default:
		f.writeCompressed(final)
	}
	f.tokens = f.tokens[:0]
	f.raw = f.raw[:0]
}

func (f *Writer) writeBlockHeader(final bool, btype uint32) {
	bfinal := uint32(0)
	if final {
		bfinal = 1
	}
	f.bw.WriteBits(bfinal, 1)
	f.bw.WriteBits(btype, 2)
}

func (f *Writer) writeEmptyFixed() {
	f.writeBlockHeader(true, fixedBlock)
	fixedLitLenCode.write(f.bw, endOfBlock)
}

// writeStored copies data in chunks of at most 65535 bytes. Empty data
// still produces one empty block.
func (f *Writer) writeStored(data []byte, final bool) {
	for {
		chunk := data[:min(len(data), maxStoredLen)]
		data = data[len(chunk):]
		f.writeBlockHeader(final && len(data) == 0, storedBlock)
		f.bw.FlushAlign()
		f.bw.WriteBits(uint32(len(chunk)), 16)
		f.bw.WriteBits(^uint32(len(chunk))&0xffff, 16)
		f.bw.WriteBytes(chunk)
		if len(data) == 0 {
			return
		}
	}
}

func (f *Writer) storedBits() int {
	n := len(f.raw)
	chunks := max(1, (n+maxStoredLen-1)/maxStoredLen)
	pad := (8 - (int(f.bw.PendingBits())+3)%8) % 8
	return pad + (chunks-1)*5 + chunks*(3+32) + 8*n
}

// writeCompressed picks the cheapest of the three block types for the
// current tokens.
func (f *Writer) writeCompressed(final bool) {
	clear(f.litFreq[:])
	clear(f.distFreq[:])
	for _, t := range f.tokens {
		if t.Kind == lz.LiteralToken {
			f.litFreq[t.Value]++
			continue
		}
		lc, _ := findLengthCode(t.Length)
		dc, _ := findDistanceCode(t.Distance)
		f.litFreq[firstLenCode+lc]++
		f.distFreq[dc]++
	}
	f.litFreq[endOfBlock]++

	dyn, err := buildDynamicHeader(f.litFreq[:], f.distFreq[:])
	if err != nil {
		f.err = err
		return
	}
	dynamicBits := dyn.bits + f.dataBits(dyn.litLenCode, dyn.distCode)
	fixedBits := f.dataBits(fixedLitLenCode, fixedDistCode)

	switch {
	case f.storedBits() <= 3+min(fixedBits, dynamicBits):
		f.writeStored(f.raw, final)
	case fixedBits <= dynamicBits:
		f.writeBlockHeader(final, fixedBlock)
		f.writeTokens(fixedLitLenCode, fixedDistCode)
	default:
		f.writeBlockHeader(final, dynamicBlock)
		dyn.write(f.bw)
		f.writeTokens(dyn.litLenCode, dyn.distCode)
	}
}

// dataBits is the size of the current tokens plus end-of-block under the
// given codes.
func (f *Writer) dataBits(litLen, dist encoding) int {
	total := 0
	for sym, n := range f.litFreq {
		if n == 0 {
			continue
		}
		bits := litLen.length[sym]
		if sym >= firstLenCode {
			bits += lenAlphabets[sym-firstLenCode].extraBits
		}
		total += n * bits
	}
	for sym, n := range f.distFreq {
		if n != 0 {
			total += n * (dist.length[sym] + distAlphabets[sym].extraBits)
		}
	}
	return total
}

func (f *Writer) writeTokens(litLen, dist encoding) {
	for _, t := range f.tokens {
		if t.Kind == lz.LiteralToken {
			litLen.write(f.bw, int(t.Value))
			continue
		}
		lc, loff := findLengthCode(t.Length)
		litLen.write(f.bw, firstLenCode+lc)
		if extra := lenAlphabets[lc].extraBits; extra > 0 {
			f.bw.WriteBits(uint32(loff), uint(extra))
		}
		dc, doff := findDistanceCode(t.Distance)
		dist.write(f.bw, dc)
		if extra := distAlphabets[dc].extraBits; extra > 0 {
			f.bw.WriteBits(uint32(doff), uint(extra))
		}
	}
	litLen.write(f.bw, endOfBlock)
}
