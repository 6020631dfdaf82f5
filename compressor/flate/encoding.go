package flate

import (
	"github.com/FitrahHaque/wzip/compressor/bitio"
	"github.com/FitrahHaque/wzip/compressor/huffman"
)

// encoding is a code table ready for the LSB-first writer: codes are stored
// bit-reversed.
type encoding struct {
	code   []uint32
	length []int
}

func newEncoding(lengths []int) (encoding, error) {
	codes, err := huffman.CanonicalCodes(lengths)
	if err != nil {
		return encoding{}, err
	}
	e := encoding{code: make([]uint32, len(codes)), length: lengths}
	for i, c := range codes {
		e.code[i] = c.Reversed()
	}
	return e, nil
}

func (e encoding) write(bw *bitio.Writer, symbol int) {
	bw.WriteBits(e.code[symbol], uint(e.length[symbol]))
}

// condensedLength is one symbol of the run-length coded length table.
type condensedLength struct {
	RLECode int
	Offset  int
}

// condenseLengths run-length codes a code length table with the 16/17/18
// repeat symbols.
func condenseLengths(lengths []int) []condensedLength {
	var out []condensedLength
	for i := 0; i < len(lengths); {
		cur := lengths[i]
		run := 1
		for i+run < len(lengths) && lengths[i+run] == cur {
			run++
		}
		i += run
		if cur == 0 {
			for run >= 11 {
				n := min(run, 138)
				out = append(out, condensedLength{RLECode: 18, Offset: n - 11})
				run -= n
			}
			if run >= 3 {
				out = append(out, condensedLength{RLECode: 17, Offset: run - 3})
				run = 0
			}
		} else {
			out = append(out, condensedLength{RLECode: cur})
			run--
			for run >= 3 {
				n := min(run, 6)
				out = append(out, condensedLength{RLECode: 16, Offset: n - 3})
				run -= n
			}
		}
		for ; run > 0; run-- {
			out = append(out, condensedLength{RLECode: cur})
		}
	}
	return out
}

// dynamicHeader is everything a dynamic block transmits before its data.
type dynamicHeader struct {
	litLenCode  encoding
	distCode    encoding
	codeLenCode encoding
	hlit        int
	hdist       int
	hclen       int
	condensed   []condensedLength
	bits        int
}

func buildDynamicHeader(litFreq, distFreq []int) (*dynamicHeader, error) {
	litLens, err := huffman.BuildLengths(litFreq, huffman.MaxCodeLength)
	if err != nil {
		return nil, err
	}
	distFreqUsed := distFreq
	if lastNonZero(distFreq) < 0 {
		// a block without matches still needs one distance code
		distFreqUsed = make([]int, len(distFreq))
		distFreqUsed[0] = 1
	}
	distLens, err := huffman.BuildLengths(distFreqUsed, huffman.MaxCodeLength)
	if err != nil {
		return nil, err
	}

	h := &dynamicHeader{
		hlit:  max(firstLenCode, lastNonZero(litLens)+1),
		hdist: max(1, lastNonZero(distLens)+1),
	}
	if h.litLenCode, err = newEncoding(litLens); err != nil {
		return nil, err
	}
	if h.distCode, err = newEncoding(distLens); err != nil {
		return nil, err
	}

	combined := make([]int, 0, h.hlit+h.hdist)
	combined = append(combined, litLens[:h.hlit]...)
	combined = append(combined, distLens[:h.hdist]...)
	h.condensed = condenseLengths(combined)

	codeLenFreq := make([]int, numCodeLen)
	for _, c := range h.condensed {
		codeLenFreq[c.RLECode]++
	}
	codeLenLens, err := huffman.BuildLengths(codeLenFreq, maxCodeLenLen)
	if err != nil {
		return nil, err
	}
	if h.codeLenCode, err = newEncoding(codeLenLens); err != nil {
		return nil, err
	}
	h.hclen = numCodeLen
	for h.hclen > 4 && codeLenLens[rleAlphabets.keyOrder[h.hclen-1]] == 0 {
		h.hclen--
	}

	h.bits = 5 + 5 + 4 + 3*h.hclen
	for _, c := range h.condensed {
		h.bits += codeLenLens[c.RLECode] + rleAlphabets.extraBits[c.RLECode]
	}
	return h, nil
}

func (h *dynamicHeader) write(bw *bitio.Writer) {
	bw.WriteBits(uint32(h.hlit-firstLenCode), 5)
	bw.WriteBits(uint32(h.hdist-1), 5)
	bw.WriteBits(uint32(h.hclen-4), 4)
	for _, key := range rleAlphabets.keyOrder[:h.hclen] {
		bw.WriteBits(uint32(h.codeLenCode.length[key]), 3)
	}
	for _, c := range h.condensed {
		h.codeLenCode.write(bw, c.RLECode)
		if extra := rleAlphabets.extraBits[c.RLECode]; extra > 0 {
			bw.WriteBits(uint32(c.Offset), uint(extra))
		}
	}
}

func lastNonZero(values []int) int {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] != 0 {
			return i
		}
	}
	return -1
}
