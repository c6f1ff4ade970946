package petrovisor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// poll calls done every poll interval until it reports true, the poll
// timeout expires or ctx is cancelled. Errors from done end the wait.
func (c *Client) poll(ctx context.Context, op string, done func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	start := time.Now()
	for attempt := 1; ; attempt++ {
		ok, err := done(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
				return fmt.Errorf("%s: %w after %s", op, ErrPollTimeout, time.Since(start).Round(time.Second))
			}
			return err
		}
		if ok {
			return nil
		}
		c.logger.DebugContext(ctx, "waiting", "operation", op, "attempt", attempt)
		if err := sleep(ctx, c.pollInterval); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%s: %w after %s", op, ErrPollTimeout, time.Since(start).Round(time.Second))
			}
			return err
		}
	}
}
