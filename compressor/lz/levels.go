package lz

import "fmt"

const (
	NoCompression      = 0
	BestSpeed          = 1
	BestCompression    = 9
	DefaultCompression = -1
	defaultLevel       = 6
)

// Params tune the match search. A zero Lazy selects greedy parsing.
type Params struct {
	Good  int // a previous match this long quarters the chain budget
	Lazy  int // do not look for a better match once this length is reached
	Nice  int // stop searching once a match this long is found
	Chain int // candidates examined per position
}

var levels = [...]Params{
	{0, 0, 0, 0},
	{4, 0, 8, 4},
	{4, 0, 16, 8},
	{4, 0, 32, 32},
	{4, 4, 16, 16},
	{8, 16, 32, 32},
	{8, 16, 128, 128},
	{8, 32, 128, 256},
	{32, 128, 258, 1024},
	{32, 258, 258, 4096},
}

// NormalizeLevel maps DefaultCompression to level 6 and rejects values
// outside 0..9.
func NormalizeLevel(level int) (int, error) {
	if level == DefaultCompression {
		return defaultLevel, nil
	}
	if level < NoCompression || level > BestCompression {
		return 0, fmt.Errorf("lz: invalid compression level %d, want %d..%d", level, NoCompression, BestCompression)
	}
	return level, nil
}

func LevelParams(level int) (Params, error) {
	level, err := NormalizeLevel(level)
	if err != nil {
		return Params{}, err
	}
	return levels[level], nil
}
