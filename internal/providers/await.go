package providers

import (
	"context"
	"time"

	"github.com/creativecloner/cloner/internal/poll"
)

// Await polls a task until it reaches a terminal state or exhausts the
// policy's wall-clock budget, returning the result URLs on success.
//
// Transient poll errors do not abort the loop: they sleep the policy's
// fixed retry interval and continue within the same budget. The elapsed
// clock is never reset. A task still pending at the budget fails with
// ErrTimeout, distinct from a remote-reported failure.
func (c *KieClient) Await(ctx context.Context, taskID string, policy poll.Policy) ([]string, error) {
	start := time.Now()
	polls := 0

	for {
		if elapsed := time.Since(start); elapsed >= policy.Budget {
			c.logger.Warn("task timed out", "task_id", taskID, "elapsed", elapsed.Round(time.Second))
			return nil, ErrTimeout
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		polls++
		status, err := c.GetTask(ctx, taskID)
		elapsed := time.Since(start)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Transient: consume a retry slot and keep polling.
			c.logger.Warn("poll error", "task_id", taskID, "poll", polls, "err", err)
			if err := poll.Wait(ctx, policy.RetrySleep); err != nil {
				return nil, err
			}
			continue
		}

		c.logger.Info("poll",
			"task_id", taskID,
			"poll", polls,
			"elapsed", elapsed.Round(time.Second),
			"state", status.State,
		)

		switch status.State {
		case StateSuccess:
			return status.ResultURLs, nil
		case StateFail:
			return nil, &TaskError{Code: status.FailCode, Message: status.FailMsg}
		case StateWaiting, StateQueuing, StateGenerating:
			if err := poll.Wait(ctx, policy.Interval(elapsed)); err != nil {
				return nil, err
			}
		default:
			// Unknown state: log and keep polling.
			c.logger.Warn("unknown task state", "task_id", taskID, "state", status.State)
			if err := poll.Wait(ctx, policy.RetrySleep); err != nil {
				return nil, err
			}
		}
	}
}
