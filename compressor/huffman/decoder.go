package huffman

import "fmt"

type BitReader interface {
	ReadBits(nbits uint) (uint32, error)
}

// Decoder resolves canonical codes one bit at a time. For every length it
// knows how many codes exist and where they start, so after each bit the
// code read so far is either a complete codeword or a prefix of a longer one.
type Decoder struct {
	count   [MaxCodeLength + 1]int
	symbols []int
}

// NewDecoder rebuilds the code from its length table. The table must be
// complete, except that an empty table and a single 1-bit code are accepted;
// reading the unused half of a single-code table fails at decode time.
func NewDecoder(lengths []int) (*Decoder, error) {
	d := &Decoder{}
	used := 0
	for symbol, length := range lengths {
		if length < 0 || length > MaxCodeLength {
			return nil, fmt.Errorf("%w: symbol %d has length %d", ErrInvalidCode, symbol, length)
		}
		if length > 0 {
			d.count[length]++
			used++
		}
	}
	left := 1
	for length := 1; length <= MaxCodeLength; length++ {
		left = left<<1 - d.count[length]
		if left < 0 {
			return nil, fmt.Errorf("%w: over-subscribed length table", ErrInvalidCode)
		}
	}
	if left > 0 && used > 0 && !(used == 1 && d.count[1] == 1) {
		return nil, fmt.Errorf("%w: incomplete length table", ErrInvalidCode)
	}

	var offs [MaxCodeLength + 2]int
	for length := 1; length <= MaxCodeLength; length++ {
		offs[length+1] = offs[length] + d.count[length]
	}
	d.symbols = make([]int, offs[MaxCodeLength+1])
	for symbol, length := range lengths {
		if length != 0 {
			d.symbols[offs[length]] = symbol
			offs[length]++
		}
	}
	return d, nil
}

func (d *Decoder) Decode(br BitReader) (int, error) {
	code, first, index := 0, 0, 0
	for length := 1; length <= MaxCodeLength; length++ {
		bit, err := br.ReadBits(1)
		if err != nil {
			return 0, err
		}
		code |= int(bit)
		count := d.count[length]
		if code-first < count {
			return d.symbols[index+code-first], nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	return 0, ErrInvalidCode
}

// Symbols reports how many symbols have a code.
func (d *Decoder) Symbols() int {
	return len(d.symbols)
}
