package intervention

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/co2twin/internal/session"
)

// ApplyWithRetry refetches the station token after each ConcurrencyConflict
// and applies again against the fresh value, up to maxTries attempts.
// Validation failures are returned immediately.
func (e *Engine) ApplyWithRetry(ctx context.Context, sess *session.Session, req Request, maxTries int) (*Result, error) {
	if maxTries < 1 {
		maxTries = 1
	}

	var res *Result
	attempt := 0
	operation := func() error {
		attempt++
		r, err := e.Apply(ctx, sess, req)
		if err == nil {
			res = r
			return nil
		}
		var conflict *ConcurrencyConflict
		if !errors.As(err, &conflict) {
			return backoff.Permanent(err)
		}
		st, gerr := e.repo.GetStation(ctx, req.Station)
		if gerr != nil {
			return backoff.Permanent(gerr)
		}
		log.Printf("intervention: %s conflict on attempt %d, retrying with fresh token", req.Station, attempt)
		req.Token = st.IntegrityToken
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 200 * time.Millisecond
	b := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxTries-1)), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return res, nil
}
