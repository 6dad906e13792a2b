package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/models"
)

type RepollOptions struct {
	// After is how long a payment may sit in processing before it is re-fetched.
	After     time.Duration
	BatchSize int
	Attempts  int
	BaseDelay time.Duration
}

func (o RepollOptions) withDefaults() RepollOptions {
	if o.After == 0 {
		o.After = 15 * time.Minute
	}
	if o.BatchSize == 0 {
		o.BatchSize = 50
	}
	if o.Attempts == 0 {
		o.Attempts = 3
	}
	if o.BaseDelay == 0 {
		o.BaseDelay = 500 * time.Millisecond
	}
	return o
}

// RepollStale re-fetches gateway payments stuck in processing, for
// notifications the gateway never delivered. Each payment gets a bounded
// number of attempts with exponential backoff while the gateway is
// unavailable. It returns how many payments were reconciled.
func (r *Reconciler) RepollStale(ctx context.Context, opts RepollOptions) (int, error) {
	opts = opts.withDefaults()
	logger := log.Ctx(ctx).With().Str("component", "payment_repoll").Logger()

	stale, err := r.db.Queries.ListStaleProcessingPayments(ctx, dbgen.ListStaleProcessingPaymentsParams{
		UpdatedBefore: r.now().Add(-opts.After),
		RowLimit:      int64(opts.BatchSize),
	})
	if err != nil {
		return 0, fmt.Errorf("list stale payments: %w", err)
	}

	reconciled := 0
	for _, payment := range stale {
		if err := ctx.Err(); err != nil {
			return reconciled, err
		}
		externalID := payment.ExternalPaymentID.String
		result, err := r.reconcileWithRetry(ctx, externalID, opts)
		if err != nil {
			logger.Warn().
				Err(err).
				Int64("payment_id", payment.ID).
				Str("external_payment_id", externalID).
				Msg("Stale payment could not be reconciled")
			continue
		}
		reconciled++
		logger.Debug().
			Int64("payment_id", payment.ID).
			Str("outcome", string(result.Outcome)).
			Msg("Stale payment reconciled")
	}
	if len(stale) > 0 {
		logger.Info().Int("stale", len(stale)).Int("reconciled", reconciled).Msg("Payment re-poll finished")
	}
	return reconciled, nil
}

func (r *Reconciler) reconcileWithRetry(ctx context.Context, externalID string, opts RepollOptions) (Result, error) {
	delay := opts.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		result, err := r.Reconcile(ctx, KindAny, externalID)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !errors.Is(err, models.ErrGatewayUnavailable) || attempt == opts.Attempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return Result{}, lastErr
}
