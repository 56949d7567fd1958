package transfer

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/Lonami/sf/pkg/wire"
)

var (
	// ErrConnection covers TCP connect/accept/read/write failures.
	ErrConnection = errors.New("connection error")
	// ErrLocalIO covers failures to read a source file or to create or write
	// a destination file or directory.
	ErrLocalIO = errors.New("local i/o error")
)

// classify sorts a session error by kind: framing errors pass
// through, filesystem errors become ErrLocalIO, everything else that broke a
// live stream is a transport problem.
func classify(err error) error {
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, wire.ErrFraming):
		return err
	case errors.As(err, &pathErr):
		return fmt.Errorf("%w: %w", ErrLocalIO, err)
	default:
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
}
