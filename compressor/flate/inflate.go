package flate

import (
	"fmt"
	"io"

	"github.com/FitrahHaque/wzip/compressor/bitio"
	"github.com/FitrahHaque/wzip/compressor/huffman"
	"github.com/FitrahHaque/wzip/compressor/lz"
)

const outChunk = 1 << 15

// Reader is a DEFLATE decompression session. It reads blocks in order until
// the final one and then reports io.EOF. When the underlying reader is an
// io.ByteReader, no byte past the end of the deflate stream is consumed.
type Reader struct {
	br     *bitio.Reader
	window lz.Window

	out    []byte
	outPos int

	inBlock   bool
	final     bool
	blockType uint32
	stored    int
	lit       *huffman.Decoder
	dist      *huffman.Decoder

	done bool
	err  error
}

func NewReader(r io.Reader) *Reader {
	f := &Reader{br: bitio.NewReader(r), out: make([]byte, 0, outChunk+lz.MaxMatch)}
	return f
}

func (f *Reader) Reset(r io.Reader) {
	f.br.Reset(r)
	f.window.Reset()
	f.out, f.outPos = f.out[:0], 0
	f.inBlock, f.final, f.done = false, false, false
	f.lit, f.dist = nil, nil
	f.err = nil
}

func (f *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if f.outPos < len(f.out) {
			n := copy(p, f.out[f.outPos:])
			f.outPos += n
			return n, nil
		}
		if f.err != nil {
			return 0, f.err
		}
		if f.done {
			return 0, io.EOF
		}
		f.out, f.outPos = f.out[:0], 0
		f.err = f.decode()
	}
}

// Close is a no-op so a Reader can be used as an io.ReadCloser.
func (f *Reader) Close() error {
	return nil
}

// decode fills f.out with up to outChunk bytes (a back-reference may
// overshoot by less than MaxMatch).
func (f *Reader) decode() error {
	for len(f.out) < outChunk {
		if !f.inBlock {
			if f.final {
				f.done = true
				return nil
			}
			if err := f.readBlockHeader(); err != nil {
				return err
			}
			continue
		}
		if f.blockType == storedBlock {
			if err := f.copyStored(); err != nil {
				return err
			}
			continue
		}
		if err := f.decodeSymbol(); err != nil {
			return err
		}
	}
	return nil
}

func (f *Reader) readBlockHeader() error {
	header, err := f.br.ReadBits(3)
	if err != nil {
		return truncated(err)
	}
	f.final = header&1 == 1
	f.blockType = header >> 1
	switch f.blockType {
	case storedBlock:
		f.br.AlignToByte()
		v, err := f.br.ReadBits(32)
		if err != nil {
			return truncated(err)
		}
		length, nlength := v&0xffff, v>>16
		if length != ^nlength&0xffff {
			return corrupt("stored block length %#04x does not match complement %#04x", length, nlength)
		}
		f.stored = int(length)
	case fixedBlock:
		f.lit, f.dist = fixedLitDecoder, fixedDistDecoder
	case dynamicBlock:
		if err := f.readDynamicTables(); err != nil {
			return err
		}
	default:
		return ErrInvalidBlockType
	}
	f.inBlock = true
	return nil
}

func (f *Reader) readDynamicTables() error {
	v, err := f.br.ReadBits(14)
	if err != nil {
		return truncated(err)
	}
	hlit := int(v&0x1f) + firstLenCode
	hdist := int(v>>5&0x1f) + 1
	hclen := int(v>>10) + 4
	if hlit > numLitLen || hdist > numDist {
		return corrupt("too many length or distance symbols (hlit %d, hdist %d)", hlit, hdist)
	}

	codeLenLens := make([]int, numCodeLen)
	for _, key := range rleAlphabets.keyOrder[:hclen] {
		l, err := f.br.ReadBits(3)
		if err != nil {
			return truncated(err)
		}
		codeLenLens[key] = int(l)
	}
	codeLenDecoder, err := huffman.NewDecoder(codeLenLens)
	if err != nil {
		return err
	}

	lengths := make([]int, hlit+hdist)
	for i := 0; i < len(lengths); {
		sym, err := codeLenDecoder.Decode(f.br)
		if err != nil {
			return truncated(err)
		}
		if sym < 16 {
			lengths[i] = sym
			i++
			continue
		}
		extra, err := f.br.ReadBits(uint(rleAlphabets.extraBits[sym]))
		if err != nil {
			return truncated(err)
		}
		value, repeat := 0, int(extra)
		switch sym {
		case 16:
			if i == 0 {
				return corrupt("repeat code with no previous length")
			}
			value, repeat = lengths[i-1], repeat+3
		case 17:
			repeat += 3
		default:
			repeat += 11
		}
		if i+repeat > len(lengths) {
			return corrupt("code length repeat overflows table")
		}
		for ; repeat > 0; repeat-- {
			lengths[i] = value
			i++
		}
	}
	if lengths[endOfBlock] == 0 {
		return corrupt("missing end-of-block code")
	}

	if f.lit, err = huffman.NewDecoder(lengths[:hlit]); err != nil {
		return err
	}
	if f.dist, err = huffman.NewDecoder(lengths[hlit:]); err != nil {
		return err
	}
	return nil
}

func (f *Reader) copyStored() error {
	if f.stored == 0 {
		f.inBlock = false
		return nil
	}
	n := min(f.stored, outChunk-len(f.out))
	start := len(f.out)
	f.out = f.out[:start+n]
	if err := f.br.ReadFull(f.out[start:]); err != nil {
		f.out = f.out[:start]
		return truncated(err)
	}
	_, _ = f.window.Write(f.out[start:])
	f.stored -= n
	return nil
}

func (f *Reader) decodeSymbol() error {
	sym, err := f.lit.Decode(f.br)
	if err != nil {
		return truncated(err)
	}
	switch {
	case sym < endOfBlock:
		f.out = append(f.out, byte(sym))
		f.window.AppendByte(byte(sym))
		return nil
	case sym == endOfBlock:
		f.inBlock = false
		return nil
	}

	lc := sym - firstLenCode
	if lc >= len(lenAlphabets) {
		return fmt.Errorf("%w: length symbol %d", huffman.ErrInvalidCode, sym)
	}
	extra, err := f.br.ReadBits(uint(lenAlphabets[lc].extraBits))
	if err != nil {
		return truncated(err)
	}
	length := lenAlphabets[lc].base + int(extra)

	dc, err := f.dist.Decode(f.br)
	if err != nil {
		return truncated(err)
	}
	if dc >= len(distAlphabets) {
		return fmt.Errorf("%w: distance symbol %d", huffman.ErrInvalidCode, dc)
	}
	extra, err = f.br.ReadBits(uint(distAlphabets[dc].extraBits))
	if err != nil {
		return truncated(err)
	}
	distance := distAlphabets[dc].base + int(extra)

	if f.out, err = f.window.Copy(f.out, distance, length); err != nil {
		return corrupt("distance %d with %d bytes of history", distance, f.window.Len())
	}
	return nil
}
