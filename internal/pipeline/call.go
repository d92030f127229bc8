package pipeline

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/fpang/veo3-storyboard/internal/auth"
	"github.com/fpang/veo3-storyboard/internal/metrics"
)

// call runs fn against a backend under the per-call timeout, the shared rate
// limiter and the retry policy. With MaxRetries at zero it makes exactly one
// attempt. Every failure comes back as *UpstreamError.
func (o *Orchestrator) call(ctx context.Context, collaborator string, fn func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			metrics.ObserveRetry(collaborator)
		}

		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		callCtx := ctx
		if o.cfg.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, o.cfg.CallTimeout)
			defer cancel()
		}

		start := time.Now()
		err := fn(callCtx)
		elapsed := time.Since(start)
		if err == nil {
			metrics.ObserveCall(collaborator, "success", elapsed)
			return nil
		}

		kind := auth.Classify(err).Type
		metrics.ObserveCall(collaborator, kind.String(), elapsed)
		log.Warn().
			Err(err).
			Str("collaborator", collaborator).
			Int("attempt", attempt).
			Str("kind", kind.String()).
			Dur("duration", elapsed).
			Msg("Backend call failed")

		// The caller's own context ending is never worth retrying.
		if ctx.Err() != nil || !kind.Transient() {
			return backoff.Permanent(err)
		}
		return err
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if o.cfg.MaxRetries > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = o.cfg.RetryInitialInterval
		eb.MaxElapsedTime = 0
		policy = backoff.WithMaxRetries(eb, o.cfg.MaxRetries)
	}

	err := backoff.Retry(op, backoff.WithContext(policy, ctx))
	if err == nil {
		return nil
	}
	return upstream(collaborator, err)
}

// upstream wraps err unless it is already an UpstreamError.
func upstream(collaborator string, err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{
		Collaborator: collaborator,
		Kind:         auth.Classify(err).Type,
		Timeout:      isTimeout(err),
		Err:          err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
