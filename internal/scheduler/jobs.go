package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/split"
	"github.com/codr1/courtledger/internal/webhook"
)

const (
	SplitExpiryJobName   = "split_payment_expiry"
	PaymentRepollJobName = "payment_repoll"

	jobTimeout = 2 * time.Minute
)

// RegisterSplitExpiryJob expires open split payments past their deadline.
// Reads already treat an overdue plan as expired; the sweep makes it durable.
func (s *Service) RegisterSplitExpiryJob(orchestrator *split.Orchestrator, cronExpr string) error {
	if orchestrator == nil {
		return errors.New("split expiry job requires an orchestrator")
	}
	jobLogger := log.With().Str("component", "split_expiry_job").Logger()

	_, err := s.AddJob(SplitExpiryJobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		expired, err := orchestrator.ExpireOverdue(ctx)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to expire split payments")
			return
		}
		if expired > 0 {
			jobLogger.Info().Int("expired", expired).Msg("Expired overdue split payments")
		}
	})
	return err
}

// RegisterPaymentRepollJob re-fetches gateway payments stuck in processing.
func (s *Service) RegisterPaymentRepollJob(reconciler *webhook.Reconciler, cronExpr string, opts webhook.RepollOptions) error {
	if reconciler == nil {
		return errors.New("payment repoll job requires a reconciler")
	}
	jobLogger := log.With().Str("component", "payment_repoll_job").Logger()

	_, err := s.AddJob(PaymentRepollJobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		if _, err := reconciler.RepollStale(ctx, opts); err != nil {
			jobLogger.Error().Err(err).Msg("Payment re-poll failed")
		}
	})
	return err
}
