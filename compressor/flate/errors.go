package flate

import (
	"errors"
	"fmt"

	"github.com/FitrahHaque/wzip/compressor/bitio"
)

var (
	ErrInvalidBlockType = errors.New("flate: reserved block type")
	ErrTruncatedStream  = errors.New("flate: stream ends before the final block")
	ErrCorruptInput     = errors.New("flate: corrupt input")
)

// truncated marks input exhaustion inside the deflate stream. The result
// matches both ErrTruncatedStream and bitio.ErrUnexpectedEOF.
func truncated(err error) error {
	if errors.Is(err, bitio.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrTruncatedStream, err)
	}
	return err
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorruptInput}, args...)...)
}
