//go:build headless

package frontend

import (
	"context"

	"github.com/user-none/emudriver/config"
)

// Run waits for ctx in headless builds. No input reaches the mapper.
func Run(ctx context.Context, s Session, wc config.WindowConfig) error {
	<-ctx.Done()
	return nil
}
