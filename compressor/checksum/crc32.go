package checksum

import "hash"

// IEEE is the reflected form of the CRC-32 polynomial used by gzip.
const IEEE = 0xedb88320

type Table [256]uint32

var ieeeTable = MakeTable(IEEE)

func MakeTable(poly uint32) *Table {
	t := new(Table)
	for i := range t {
		crc := uint32(i)
		for range 8 {
			if crc&1 == 1 {
				crc = crc>>1 ^ poly
			} else {
				crc >>= 1
			}
		}
		t[i] = crc
	}
	return t
}

// UpdateCRC32 folds p into a running CRC-32 and returns the new state. The
// state of an empty input is 0.
func UpdateCRC32(crc uint32, p []byte) uint32 {
	return update(crc, ieeeTable, p)
}

func CRC32(p []byte) uint32 {
	return UpdateCRC32(0, p)
}

func update(crc uint32, tab *Table, p []byte) uint32 {
	crc = ^crc
	for _, b := range p {
		crc = tab[byte(crc)^b] ^ crc>>8
	}
	return ^crc
}

type crc32Digest struct {
	crc uint32
}

// NewCRC32 returns a hash.Hash32 backed by UpdateCRC32.
func NewCRC32() hash.Hash32 {
	return &crc32Digest{}
}

func (d *crc32Digest) Write(p []byte) (int, error) {
	d.crc = UpdateCRC32(d.crc, p)
	return len(p), nil
}

func (d *crc32Digest) Sum32() uint32 { return d.crc }

func (d *crc32Digest) Sum(in []byte) []byte {
	s := d.crc
	return append(in, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

func (d *crc32Digest) Reset()         { d.crc = 0 }
func (d *crc32Digest) Size() int      { return 4 }
func (d *crc32Digest) BlockSize() int { return 1 }
