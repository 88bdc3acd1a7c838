package driver

import (
	"errors"
	"fmt"

	emucore "github.com/user-none/emudriver/api"
)

var (
	// ErrStalled is returned by Run when a backend step exceeds the
	// configured deadline. The stuck goroutine is abandoned.
	ErrStalled = fmt.Errorf("%w: backend step stalled", emucore.ErrFatal)

	// ErrStopped is returned by requests made after the run loop exited.
	ErrStopped = errors.New("driver stopped")

	// ErrRunning is returned by a second call to Run.
	ErrRunning = errors.New("driver already running")

	// ErrUnsupported is returned for operations the backend does not offer.
	ErrUnsupported = errors.New("operation not supported by backend")
)

// fatal marks err as terminal unless it already is.
func fatal(err error) error {
	if err == nil || errors.Is(err, emucore.ErrFatal) {
		return err
	}
	return fmt.Errorf("%w: %w", emucore.ErrFatal, err)
}
