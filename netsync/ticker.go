package netsync

import (
	"context"
	"fmt"
	"time"
)

// Loop calls tick every interval until the context is done or tick fails.
func Loop(ctx context.Context, interval time.Duration, tick func() error) error {
	if interval <= 0 {
		return fmt.Errorf("invalid tick interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := tick()
			if err != nil {
				return err
			}
		}
	}
}
