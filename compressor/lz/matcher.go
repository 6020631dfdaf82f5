package lz

const (
	hashBits    = 15
	hashSize    = 1 << hashBits
	windowMask  = WindowSize - 1
	maxDistance = WindowSize - 1
	bufferSize  = 2 * WindowSize
)

// Matcher turns a byte stream into tokens. Input is appended with Fill and
// parsed with Tokenize; positions are tracked as absolute stream offsets so
// sliding the buffer never invalidates the chains.
//
// head maps a 3-byte hash to the most recent position with that prefix and
// prev links each position to the previous one in its bucket, giving a
// most-recent-first candidate list per bucket. Both store position+1 so that
// zero means empty.
type Matcher struct {
	params Params

	buf     []byte
	end     int   // valid bytes in buf
	index   int   // next position to parse
	hashed  int   // positions below this are linked into the chains
	emitted int   // start of the next token to emit
	base    int64 // stream offset of buf[0]

	head []int64
	prev []int64

	havePrev bool
	prevLen  int
	prevDist int
}

func NewMatcher(level int) (*Matcher, error) {
	params, err := LevelParams(level)
	if err != nil {
		return nil, err
	}
	return NewMatcherParams(params), nil
}

func NewMatcherParams(params Params) *Matcher {
	return &Matcher{
		params: params,
		buf:    make([]byte, bufferSize),
		head:   make([]int64, hashSize),
		prev:   make([]int64, WindowSize),
	}
}

func (m *Matcher) Reset() {
	m.end, m.index, m.hashed, m.emitted = 0, 0, 0, 0
	m.base = 0
	clear(m.head)
	clear(m.prev)
	m.havePrev, m.prevLen, m.prevDist = false, 0, 0
}

// Fill copies as much of p as fits and returns how many bytes were taken.
// Call Tokenize between Fill calls so there is room to slide.
func (m *Matcher) Fill(p []byte) int {
	if m.end == len(m.buf) {
		m.slide()
	}
	n := copy(m.buf[m.end:], p)
	m.end += n
	return n
}

// Buffered reports how many filled bytes have not been emitted as tokens.
func (m *Matcher) Buffered() int {
	return m.end - m.emitted
}

func (m *Matcher) slide() {
	delta := m.index - 1 - WindowSize
	if delta <= 0 {
		return
	}
	copy(m.buf, m.buf[delta:m.end])
	m.end -= delta
	m.index -= delta
	m.emitted -= delta
	m.hashed = max(m.hashed-delta, 0)
	m.base += int64(delta)
}

// Tokenize parses buffered input and hands each token, with the input bytes
// it covers, to emit. Without flush it keeps MaxMatch bytes of lookahead
// unparsed; with flush it parses everything.
func (m *Matcher) Tokenize(flush bool, emit func(Token, []byte)) {
	limit := m.end - MaxMatch
	if flush {
		limit = m.end
	}
	if m.params.Lazy == 0 {
		m.greedy(limit, emit)
		return
	}
	m.lazy(limit, emit)
	if flush && m.havePrev {
		m.commitPrev(emit)
	}
}

func (m *Matcher) greedy(limit int, emit func(Token, []byte)) {
	for m.index < limit {
		i := m.index
		m.insertUpTo(i)
		if length, distance := m.findMatch(i, 0); length >= MinMatch {
			m.emitToken(Match(length, distance), emit)
			m.index += length
		} else {
			m.emitToken(Literal(m.buf[i]), emit)
			m.index++
		}
	}
}

// lazy defers each decision by one position: a match found at i-1 is only
// committed if the match at i is not strictly longer.
func (m *Matcher) lazy(limit int, emit func(Token, []byte)) {
	for m.index < limit {
		i := m.index
		m.insertUpTo(i)
		length, distance := 0, 0
		if !m.havePrev || m.prevLen < m.params.Lazy {
			length, distance = m.findMatch(i, m.prevLen)
		}
		if m.havePrev && m.prevLen >= MinMatch && length <= m.prevLen {
			m.commitPrev(emit)
			continue
		}
		if m.havePrev {
			m.emitToken(Literal(m.buf[i-1]), emit)
		}
		m.havePrev = true
		m.prevLen, m.prevDist = length, distance
		m.index = i + 1
	}
}

// commitPrev emits the decision pending at index-1.
func (m *Matcher) commitPrev(emit func(Token, []byte)) {
	start := m.index - 1
	if m.prevLen >= MinMatch {
		m.emitToken(Match(m.prevLen, m.prevDist), emit)
		m.index = start + m.prevLen
	} else {
		m.emitToken(Literal(m.buf[start]), emit)
	}
	m.havePrev = false
	m.prevLen, m.prevDist = 0, 0
}

func (m *Matcher) emitToken(t Token, emit func(Token, []byte)) {
	size := t.Size()
	emit(t, m.buf[m.emitted:m.emitted+size])
	m.emitted += size
}

func (m *Matcher) insertUpTo(j int) {
	for ; m.hashed < j && m.hashed+MinMatch <= m.end; m.hashed++ {
		pos := m.base + int64(m.hashed)
		h := hash3(m.buf[m.hashed:])
		m.prev[pos&windowMask] = m.head[h]
		m.head[h] = pos + 1
	}
}

// findMatch walks the bucket of position i, most recent candidate first,
// and returns the longest match. Only a strictly longer match replaces the
// current best, so ties go to the smaller distance.
func (m *Matcher) findMatch(i, prevLen int) (length, distance int) {
	maxLen := min(MaxMatch, m.end-i)
	if maxLen < MinMatch || m.params.Chain == 0 {
		return 0, 0
	}
	chain := m.params.Chain
	if prevLen >= m.params.Good {
		chain >>= 2
	}
	nice := min(m.params.Nice, maxLen)
	cur := m.buf[i : i+maxLen]
	pos := m.base + int64(i)
	minPos := pos - maxDistance

	best := MinMatch - 1
	for cand := m.head[hash3(cur)] - 1; cand >= minPos && cand >= 0 && chain > 0; cand = m.prev[cand&windowMask] - 1 {
		ci := int(cand - m.base)
		if m.buf[ci+best] == cur[best] {
			if n := matchLen(m.buf[ci:ci+maxLen], cur); n > best {
				best = n
				distance = int(pos - cand)
				if n >= nice {
					break
				}
			}
		}
		chain--
	}
	if best < MinMatch {
		return 0, 0
	}
	return best, distance
}

func matchLen(a, b []byte) int {
	n := 0
	for n < len(a) && a[n] == b[n] {
		n++
	}
	return n
}

func hash3(b []byte) uint32 {
	return (uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])) * 0x9e3779b1 >> (32 - hashBits)
}

// Tokenize parses data in one pass at the given level.
func Tokenize(data []byte, level int) ([]Token, error) {
	m, err := NewMatcher(level)
	if err != nil {
		return nil, err
	}
	var tokens []Token
	emit := func(t Token, _ []byte) {
		tokens = append(tokens, t)
	}
	for len(data) > 0 {
		n := m.Fill(data)
		data = data[n:]
		m.Tokenize(false, emit)
	}
	m.Tokenize(true, emit)
	return tokens, nil
}
