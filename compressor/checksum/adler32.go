package checksum

import "hash"

const (
	adlerMod = 65521
	// largest n such that 255n(n+1)/2 + (n+1)(adlerMod-1) fits in 32 bits
	adlerNMax = 5552
)

// UpdateAdler32 folds p into a running Adler-32. The state of an empty
// input is 1.
func UpdateAdler32(adler uint32, p []byte) uint32 {
	s1, s2 := adler&0xffff, adler>>16
	for len(p) > 0 {
		var rest []byte
		if len(p) > adlerNMax {
			p, rest = p[:adlerNMax], p[adlerNMax:]
		}
		for _, b := range p {
			s1 += uint32(b)
			s2 += s1
		}
		s1 %= adlerMod
		s2 %= adlerMod
		p = rest
	}
	return s2<<16 | s1
}

func Adler32(p []byte) uint32 {
	return UpdateAdler32(1, p)
}

type adler32Digest struct {
	adler uint32
}

func NewAdler32() hash.Hash32 {
	return &adler32Digest{adler: 1}
}

func (d *adler32Digest) Write(p []byte) (int, error) {
	d.adler = UpdateAdler32(d.adler, p)
	return len(p), nil
}

func (d *adler32Digest) Sum32() uint32 { return d.adler }

func (d *adler32Digest) Sum(in []byte) []byte {
	s := d.adler
	return append(in, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

func (d *adler32Digest) Reset()         { d.adler = 1 }
func (d *adler32Digest) Size() int      { return 4 }
func (d *adler32Digest) BlockSize() int { return 4 }
