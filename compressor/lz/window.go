package lz

import "errors"

var ErrDistanceTooFar = errors.New("lz: back-reference reaches before the start of the window")

// Window is the decoder's history: a fixed ring of the last WindowSize
// output bytes.
type Window struct {
	hist [WindowSize]byte
	pos  int
	full bool
}

func (w *Window) Reset() {
	w.pos = 0
	w.full = false
}

// Len reports how many bytes of history are available.
func (w *Window) Len() int {
	if w.full {
		return WindowSize
	}
	return w.pos
}

func (w *Window) AppendByte(b byte) {
	w.hist[w.pos] = b
	w.pos = (w.pos + 1) & windowMask
	if w.pos == 0 {
		w.full = true
	}
}

func (w *Window) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) > WindowSize {
		p = p[len(p)-WindowSize:]
	}
	for len(p) > 0 {
		k := copy(w.hist[w.pos:], p)
		p = p[k:]
		w.pos += k
		if w.pos == WindowSize {
			w.pos = 0
			w.full = true
		}
	}
	return n, nil
}

// Copy resolves a back-reference, appending the copied bytes to dst and to
// the history. Overlapping copies (length > distance) repeat the pattern.
func (w *Window) Copy(dst []byte, distance, length int) ([]byte, error) {
	if distance < 1 || distance > w.Len() {
		return dst, ErrDistanceTooFar
	}
	src := (w.pos - distance) & windowMask
	for range length {
		b := w.hist[src]
		dst = append(dst, b)
		w.AppendByte(b)
		src = (src + 1) & windowMask
	}
	return dst, nil
}
