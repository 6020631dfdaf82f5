package huffman

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
)

// MaxCodeLength is the longest code DEFLATE can transmit.
const MaxCodeLength = 15

var ErrInvalidCode = errors.New("huffman: invalid code")

type CanonicalHuffmanCode struct {
	Code   uint32 // most significant bit is sent first
	Length int
}

// Reversed returns Code with its Length bits mirrored, ready for an LSB-first
// bit writer.
func (c CanonicalHuffmanCode) Reversed() uint32 {
	if c.Length == 0 {
		return 0
	}
	return bits.Reverse32(c.Code) >> (32 - c.Length)
}

// BuildCanonicalHuffmanTree returns one code per entry of symbolFreq. Symbols
// with zero frequency get a zero-length code.
func BuildCanonicalHuffmanTree(symbolFreq []int, maxLength int) ([]CanonicalHuffmanCode, error) {
	lengths, err := BuildLengths(symbolFreq, maxLength)
	if err != nil {
		return nil, err
	}
	return CanonicalCodes(lengths)
}

// BuildLengths computes length-limited optimal code lengths. A lone used
// symbol still gets a 1-bit code.
func BuildLengths(symbolFreq []int, maxLength int) ([]int, error) {
	if maxLength < 1 || maxLength > MaxCodeLength {
		return nil, fmt.Errorf("huffman: code length limit %d out of range", maxLength)
	}
	used := 0
	for symbol, freq := range symbolFreq {
		if freq < 0 {
			return nil, fmt.Errorf("huffman: negative frequency for symbol %d", symbol)
		}
		if freq > 0 {
			used++
		}
	}
	lengths := make([]int, len(symbolFreq))
	if used == 0 {
		return lengths, nil
	}
	if used > 1<<maxLength {
		return nil, fmt.Errorf("huffman: %d symbols do not fit in %d-bit codes", used, maxLength)
	}

	leaves := collectDepths(buildTree(symbolFreq), 0, make([]leafDepth, 0, used))
	if len(leaves) == 1 {
		lengths[leaves[0].symbol] = 1
		return lengths, nil
	}
	sort.Slice(leaves, func(i, j int) bool {
		if leaves[i].freq != leaves[j].freq {
			return leaves[i].freq > leaves[j].freq
		}
		return leaves[i].symbol < leaves[j].symbol
	})
	limitLengths(leaves, maxLength)
	for _, leaf := range leaves {
		lengths[leaf.symbol] = leaf.length
	}
	return lengths, nil
}

// CanonicalCodes assigns codes in order of (length, symbol) as described in
// RFC 1951 section 3.2.2.
func CanonicalCodes(lengths []int) ([]CanonicalHuffmanCode, error) {
	var blCount [MaxCodeLength + 1]int
	for symbol, length := range lengths {
		if length < 0 || length > MaxCodeLength {
			return nil, fmt.Errorf("huffman: symbol %d has invalid length %d", symbol, length)
		}
		if length > 0 {
			blCount[length]++
		}
	}
	left := 1
	for length := 1; length <= MaxCodeLength; length++ {
		left = left<<1 - blCount[length]
		if left < 0 {
			return nil, fmt.Errorf("%w: over-subscribed length table", ErrInvalidCode)
		}
	}

	var nextCode [MaxCodeLength + 1]uint32
	code := uint32(0)
	for length := 1; length <= MaxCodeLength; length++ {
		code = (code + uint32(blCount[length-1])) << 1
		nextCode[length] = code
	}
	codes := make([]CanonicalHuffmanCode, len(lengths))
	for symbol, length := range lengths {
		if length == 0 {
			continue
		}
		codes[symbol] = CanonicalHuffmanCode{Code: nextCode[length], Length: length}
		nextCode[length]++
	}
	return codes, nil
}

// Lengths extracts the length table of codes.
func Lengths(codes []CanonicalHuffmanCode) []int {
	lengths := make([]int, len(codes))
	for i, c := range codes {
		lengths[i] = c.Length
	}
	return lengths
}
