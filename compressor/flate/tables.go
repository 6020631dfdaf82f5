package flate

import (
	"math/bits"

	"github.com/FitrahHaque/wzip/compressor/huffman"
)

const (
	numLitLen     = 286
	numDist       = 30
	numCodeLen    = 19
	endOfBlock    = 256
	firstLenCode  = 257
	maxCodeLenLen = 7

	storedBlock  = 0
	fixedBlock   = 1
	dynamicBlock = 2
)

type alphabet struct {
	extraBits int
	base      int
}

// lenAlphabets is indexed by length symbol - 257.
var lenAlphabets = [...]alphabet{
	{extraBits: 0, base: 3}, {extraBits: 0, base: 4}, {extraBits: 0, base: 5}, {extraBits: 0, base: 6},
	{extraBits: 0, base: 7}, {extraBits: 0, base: 8}, {extraBits: 0, base: 9}, {extraBits: 0, base: 10},
	{extraBits: 1, base: 11}, {extraBits: 1, base: 13}, {extraBits: 1, base: 15}, {extraBits: 1, base: 17},
	{extraBits: 2, base: 19}, {extraBits: 2, base: 23}, {extraBits: 2, base: 27}, {extraBits: 2, base: 31},
	{extraBits: 3, base: 35}, {extraBits: 3, base: 43}, {extraBits: 3, base: 51}, {extraBits: 3, base: 59},
	{extraBits: 4, base: 67}, {extraBits: 4, base: 83}, {extraBits: 4, base: 99}, {extraBits: 4, base: 115},
	{extraBits: 5, base: 131}, {extraBits: 5, base: 163}, {extraBits: 5, base: 195}, {extraBits: 5, base: 227},
	{extraBits: 0, base: 258},
}

var distAlphabets = [...]alphabet{
	{extraBits: 0, base: 1}, {extraBits: 0, base: 2}, {extraBits: 0, base: 3}, {extraBits: 0, base: 4},
	{extraBits: 1, base: 5}, {extraBits: 1, base: 7}, {extraBits: 2, base: 9}, {extraBits: 2, base: 13},
	{extraBits: 3, base: 17}, {extraBits: 3, base: 25}, {extraBits: 4, base: 33}, {extraBits: 4, base: 49},
	{extraBits: 5, base: 65}, {extraBits: 5, base: 97}, {extraBits: 6, base: 129}, {extraBits: 6, base: 193},
	{extraBits: 7, base: 257}, {extraBits: 7, base: 385}, {extraBits: 8, base: 513}, {extraBits: 8, base: 769},
	{extraBits: 9, base: 1025}, {extraBits: 9, base: 1537}, {extraBits: 10, base: 2049}, {extraBits: 10, base: 3073},
	{extraBits: 11, base: 4097}, {extraBits: 11, base: 6145}, {extraBits: 12, base: 8193}, {extraBits: 12, base: 12289},
	{extraBits: 13, base: 16385}, {extraBits: 13, base: 24577},
}

// rleAlphabets holds the extra bits of the code length alphabet; keyOrder is
// the order in which code length code lengths are transmitted.
var rleAlphabets = struct {
	extraBits [numCodeLen]int
	keyOrder  [numCodeLen]int
}{
	extraBits: [numCodeLen]int{16: 2, 17: 3, 18: 7},
	keyOrder:  [numCodeLen]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15},
}

var lengthCodeOf [259]uint8

var (
	fixedLitLenCode  encoding
	fixedDistCode    encoding
	fixedLitDecoder  *huffman.Decoder
	fixedDistDecoder *huffman.Decoder
)

func init() {
	for code, a := range lenAlphabets {
		for l := a.base; l < a.base+1<<a.extraBits && l <= 258; l++ {
			lengthCodeOf[l] = uint8(code)
		}
	}

	// RFC 1951 section 3.2.6
	litLens := make([]int, 288)
	for i := range litLens {
		switch {
		case i < 144:
			litLens[i] = 8
		case i < 256:
			litLens[i] = 9
		case i < 280:
			litLens[i] = 7
		default:
			litLens[i] = 8
		}
	}
	distLens := make([]int, numDist)
	for i := range distLens {
		distLens[i] = 5
	}

	var err error
	if fixedLitLenCode, err = newEncoding(litLens); err != nil {
		panic(err)
	}
	if fixedDistCode, err = newEncoding(distLens); err != nil {
		panic(err)
	}
	if fixedLitDecoder, err = huffman.NewDecoder(litLens); err != nil {
		panic(err)
	}
	// The fixed distance code spans 32 five-bit codes; symbols 30 and 31
	// decode but are rejected as distances.
	if fixedDistDecoder, err = huffman.NewDecoder(append(distLens, 5, 5)); err != nil {
		panic(err)
	}
}

// findLengthCode returns the index into lenAlphabets and the extra-bits
// offset for a match length in 3..258.
func findLengthCode(length int) (code int, offset int) {
	code = int(lengthCodeOf[length])
	return code, length - lenAlphabets[code].base
}

// findDistanceCode returns the distance symbol and extra-bits offset for a
// distance in 1..32768.
func findDistanceCode(distance int) (code int, offset int) {
	d := distance - 1
	if d < 4 {
		return d, 0
	}
	top := bits.Len(uint(d)) - 1
	code = 2*top + (d>>(top-1))&1
	return code, distance - distAlphabets[code].base
}
