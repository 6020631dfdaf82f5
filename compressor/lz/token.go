package lz

import "fmt"

type TokenKind int

const (
	LiteralToken TokenKind = iota
	MatchToken
)

const (
	MinMatch   = 3
	MaxMatch   = 258
	WindowSize = 1 << 15
)

// Token is one step of the LZ77 parse: a literal byte, or a copy of Length
// bytes starting Distance bytes back.
type Token struct {
	Kind     TokenKind
	Value    byte
	Length   int
	Distance int
}

func Literal(b byte) Token {
	return Token{Kind: LiteralToken, Value: b}
}

func Match(length, distance int) Token {
	return Token{Kind: MatchToken, Length: length, Distance: distance}
}

// Size reports how many input bytes the token stands for.
func (t Token) Size() int {
	if t.Kind == MatchToken {
		return t.Length
	}
	return 1
}

func (t Token) String() string {
	if t.Kind == MatchToken {
		return fmt.Sprintf("match(%d,%d)", t.Length, t.Distance)
	}
	return fmt.Sprintf("literal(%q)", t.Value)
}
