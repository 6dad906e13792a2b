// Package webhook applies payment gateway notifications to the ledger and to
// split payment plans.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/db"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/gateway"
	"github.com/codr1/courtledger/internal/ledger"
	"github.com/codr1/courtledger/internal/metrics"
	"github.com/codr1/courtledger/internal/models"
	"github.com/codr1/courtledger/internal/notify"
	"github.com/codr1/courtledger/internal/split"
)

const SignatureHeader = "X-Signature"

const topicPayment = "payment"

// Kind selects which external reference shapes an endpoint accepts.
type Kind int

const (
	// KindAny accepts a plain payment id or a split share reference.
	KindAny Kind = iota
	// KindSplit accepts only "{splitPaymentId}_{participantId}".
	KindSplit
)

// Outcome is journaled with every processed delivery.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeIgnored        Outcome = "ignored"
	OutcomeStale          Outcome = "stale"
	OutcomeOverpayment    Outcome = "overpayment"
	OutcomeAmountMismatch Outcome = "amount_mismatch"
	OutcomeSplitExpired   Outcome = "split_expired"
	OutcomeSplitCancelled Outcome = "split_cancelled"
)

type Result struct {
	Outcome           Outcome
	ExternalPaymentID string
	GatewayStatus     string
	PaymentID         int64
	Status            models.PaymentStatus
}

type Options struct {
	// Secret enables HMAC-SHA256 verification of the raw body when set.
	Secret       string
	FetchTimeout time.Duration
}

type Reconciler struct {
	db           *db.DB
	gateway      gateway.Client
	orchestrator *split.Orchestrator
	notifier     notify.Notifier
	metrics      *metrics.Metrics
	secret       []byte
	fetchTimeout time.Duration
	now          func() time.Time
}

func NewReconciler(database *db.DB, gw gateway.Client, orchestrator *split.Orchestrator, notifier notify.Notifier, m *metrics.Metrics, opts Options) (*Reconciler, error) {
	if database == nil {
		return nil, errors.New("webhook reconciler requires a database")
	}
	if gw == nil {
		return nil, errors.New("webhook reconciler requires a gateway client")
	}
	if orchestrator == nil {
		return nil, errors.New("webhook reconciler requires a split orchestrator")
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if opts.FetchTimeout == 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	return &Reconciler{
		db:           database,
		gateway:      gw,
		orchestrator: orchestrator,
		notifier:     notifier,
		metrics:      m,
		secret:       []byte(opts.Secret),
		fetchTimeout: opts.FetchTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Event is the notification body. Only the payment id is trusted; status
// and amounts are always pulled from the gateway.
type Event struct {
	Type   string    `json:"type"`
	Action string    `json:"action,omitempty"`
	Data   EventData `json:"data"`
}

type EventData struct {
	ID string `json:"id"`
}

// UnmarshalJSON accepts the id as a JSON string or number.
func (d *EventData) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id := bytes.TrimSpace(raw.ID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		d.ID = ""
		return nil
	}
	if id[0] == '"' {
		return json.Unmarshal(id, &d.ID)
	}
	var number json.Number
	if err := json.Unmarshal(id, &number); err != nil {
		return err
	}
	d.ID = number.String()
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	return hex.EncodeToString(mac(secret, body))
}

func mac(secret, body []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(body)
	return h.Sum(nil)
}

// Verify checks signature against body. It always passes when no secret is configured.
func (r *Reconciler) Verify(body []byte, signature string) error {
	if len(r.secret) == 0 {
		return nil
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(got, mac(r.secret, body)) {
		return models.ErrWebhookAuthenticationFailed
	}
	return nil
}

// Handle verifies and parses a delivery, then reconciles the payment it names.
func (r *Reconciler) Handle(ctx context.Context, kind Kind, body []byte, signature string) (Result, error) {
	if err := r.Verify(body, signature); err != nil {
		r.metrics.WebhookOutcome("unauthorized")
		return Result{}, err
	}
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		r.metrics.WebhookOutcome("invalid")
		return Result{}, fmt.Errorf("%w: %v", models.ErrInvalidWebhookPayload, err)
	}
	if event.Type != topicPayment {
		log.Ctx(ctx).Debug().
			Str("component", "webhook").
			Str("type", event.Type).
			Msg("Ignoring non-payment notification")
		r.metrics.WebhookOutcome(string(OutcomeIgnored))
		return Result{Outcome: OutcomeIgnored}, nil
	}
	externalID := strings.TrimSpace(event.Data.ID)
	if externalID == "" {
		r.metrics.WebhookOutcome("invalid")
		return Result{}, fmt.Errorf("%w: data.id is required", models.ErrInvalidWebhookPayload)
	}
	return r.Reconcile(ctx, kind, externalID)
}

// MapStatus translates a gateway status. ok is false for statuses the
// reconciler does not act on, such as gateway-side refunds.
func MapStatus(gatewayStatus string) (models.PaymentStatus, bool) {
	switch gatewayStatus {
	case gateway.StatusApproved, gateway.StatusAuthorized:
		return models.PaymentCompleted, true
	case gateway.StatusPending, gateway.StatusInProcess, gateway.StatusInMediation:
		return models.PaymentProcessing, true
	case gateway.StatusRejected:
		return models.PaymentFailed, true
	case gateway.StatusCancelled:
		return models.PaymentCancelled, true
	}
	return "", false
}

// target is the local payment a gateway payment resolves to.
type target struct {
	payment       dbgen.Payment
	splitID       int64
	participantID int64
}

func (t target) isSplit() bool {
	return t.splitID != 0
}

// afterCommit carries what must be announced once the transaction commits.
type afterCommit struct {
	confirmed *dbgen.Booking
	split     *split.Result
}

// Reconcile pulls the canonical state of externalID from the gateway and
// applies it in one transaction together with the journal entry. A delivery
// already journaled for the same gateway status is a duplicate.
func (r *Reconciler) Reconcile(ctx context.Context, kind Kind, externalID string) (Result, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "webhook").
		Str("external_payment_id", externalID).
		Logger()

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	canonical, err := r.gateway.GetPayment(fetchCtx, externalID)
	cancel()
	if err != nil {
		if errors.Is(err, models.ErrUnknownReference) {
			r.metrics.WebhookOutcome("unknown_reference")
			return Result{}, fmt.Errorf("gateway payment %s: %w", externalID, err)
		}
		r.metrics.WebhookOutcome("gateway_error")
		logger.Error().Err(err).Msg("Failed to fetch payment from gateway")
		if errors.Is(err, models.ErrGatewayUnavailable) {
			return Result{}, fmt.Errorf("fetch gateway payment %s: %w", externalID, err)
		}
		return Result{}, fmt.Errorf("fetch gateway payment %s: %w: %v", externalID, models.ErrGatewayUnavailable, err)
	}
	if canonical.ID == "" {
		canonical.ID = externalID
	}

	result := Result{ExternalPaymentID: externalID, GatewayStatus: canonical.Status}
	var announce afterCommit
	now := r.now()
	err = r.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		if _, err := q.GetWebhookEvent(ctx, dbgen.GetWebhookEventParams{
			ExternalPaymentID: externalID,
			GatewayStatus:     canonical.Status,
		}); err == nil {
			result.Outcome = OutcomeDuplicate
			return nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load webhook event: %w", err)
		}

		tgt, err := resolve(ctx, q, kind, canonical, now)
		if err != nil {
			return err
		}
		result.PaymentID = tgt.payment.ID
		result.Status = models.PaymentStatus(tgt.payment.Status)

		mapped, ok := MapStatus(canonical.Status)
		if !ok {
			result.Outcome = OutcomeIgnored
			logger.Warn().
				Str("gateway_status", canonical.Status).
				Int64("payment_id", tgt.payment.ID).
				Msg("Gateway status has no ledger mapping")
		} else {
			result.Outcome, announce, err = apply(ctx, q, tgt, mapped, canonical, now)
			if err != nil {
				return err
			}
			payment, err := q.GetPayment(ctx, tgt.payment.ID)
			if err != nil {
				return fmt.Errorf("reload payment: %w", err)
			}
			result.Status = models.PaymentStatus(payment.Status)
		}

		return q.CreateWebhookEvent(ctx, dbgen.CreateWebhookEventParams{
			ID:                uuid.NewString(),
			Topic:             topicPayment,
			ExternalPaymentID: externalID,
			GatewayStatus:     canonical.Status,
			ExternalReference: canonical.ExternalReference,
			Outcome:           string(result.Outcome),
			Payload:           string(canonical.Raw),
			ProcessedAt:       now,
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			result.Outcome = OutcomeDuplicate
			r.metrics.WebhookOutcome(string(result.Outcome))
			return result, nil
		}
		if errors.Is(err, models.ErrUnknownReference) {
			r.metrics.WebhookOutcome("unknown_reference")
			logger.Warn().Err(err).Str("external_reference", canonical.ExternalReference).Msg("Webhook references no local payment")
			return Result{}, err
		}
		logger.Error().Err(err).Msg("Failed to reconcile gateway payment")
		return Result{}, err
	}

	r.metrics.WebhookOutcome(string(result.Outcome))
	logger.Info().
		Int64("payment_id", result.PaymentID).
		Str("gateway_status", canonical.Status).
		Str("status", string(result.Status)).
		Str("outcome", string(result.Outcome)).
		Msg("Gateway notification reconciled")
	if announce.split != nil {
		r.orchestrator.Observe(ctx, *announce.split)
	}
	if announce.confirmed != nil {
		r.notifier.BookingConfirmed(ctx, notify.EventFromBooking(*announce.confirmed))
	}
	return result, nil
}

// resolve finds the local payment for the gateway's external reference. A
// split share that has no payment yet gets one, so a share paid through a
// link created elsewhere still lands in the ledger.
func resolve(ctx context.Context, q dbgen.Querier, kind Kind, canonical gateway.Payment, now time.Time) (target, error) {
	ref := strings.TrimSpace(canonical.ExternalReference)
	if splitID, participantID, ok := split.ParseExternalReference(ref); ok {
		return resolveShare(ctx, q, splitID, participantID, canonical, now)
	}
	if kind == KindSplit {
		return target{}, fmt.Errorf("reference %q is not a split share: %w", ref, models.ErrUnknownReference)
	}
	paymentID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || paymentID <= 0 {
		return target{}, fmt.Errorf("reference %q: %w", ref, models.ErrUnknownReference)
	}
	payment, err := q.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return target{}, fmt.Errorf("payment %d: %w", paymentID, models.ErrUnknownReference)
		}
		return target{}, fmt.Errorf("load payment: %w", err)
	}
	return target{payment: payment}, nil
}

// resolveShare picks the payment row for a share. A row already bound to the
// gateway payment wins; otherwise the participant's attached row is used while
// it is not bound to an earlier gateway attempt. A new attempt gets its own row.
func resolveShare(ctx context.Context, q dbgen.Querier, splitID, participantID int64, canonical gateway.Payment, now time.Time) (target, error) {
	plan, err := q.GetSplitPayment(ctx, splitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return target{}, fmt.Errorf("split payment %d: %w", splitID, models.ErrUnknownReference)
		}
		return target{}, fmt.Errorf("load split payment: %w", err)
	}
	participant, err := q.GetSplitParticipant(ctx, dbgen.GetSplitParticipantParams{ID: participantID, SplitPaymentID: splitID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return target{}, fmt.Errorf("participant %d of split %d: %w", participantID, splitID, models.ErrUnknownReference)
		}
		return target{}, fmt.Errorf("load participant: %w", err)
	}
	tgt := target{splitID: splitID, participantID: participantID}

	if canonical.ID != "" {
		bound, err := q.GetPaymentByExternalID(ctx, sql.NullString{String: canonical.ID, Valid: true})
		switch {
		case err == nil:
			if bound.BookingID != plan.BookingID {
				return target{}, fmt.Errorf("gateway payment %s belongs to booking %d: %w", canonical.ID, bound.BookingID, models.ErrUnknownReference)
			}
			tgt.payment = bound
			return tgt, nil
		case !errors.Is(err, sql.ErrNoRows):
			return target{}, fmt.Errorf("load payment by gateway id: %w", err)
		}
	}
	if participant.PaymentID.Valid {
		attached, err := q.GetPayment(ctx, participant.PaymentID.Int64)
		if err != nil {
			return target{}, fmt.Errorf("load share payment: %w", err)
		}
		if !attached.ExternalPaymentID.Valid {
			tgt.payment = attached
			return tgt, nil
		}
	}

	tgt.payment, err = q.CreatePayment(ctx, dbgen.CreatePaymentParams{
		BookingID:         plan.BookingID,
		AmountCents:       participant.AmountCents,
		Method:            "gateway",
		Status:            string(models.PaymentPending),
		Note:              "split share",
		ExternalReference: sql.NullString{String: strings.TrimSpace(canonical.ExternalReference), Valid: true},
		Now:               now,
	})
	if err != nil {
		return target{}, fmt.Errorf("create share payment: %w", err)
	}
	if _, err := q.AttachParticipantPayment(ctx, dbgen.AttachParticipantPaymentParams{
		PaymentID: sql.NullInt64{Int64: tgt.payment.ID, Valid: true},
		UpdatedAt: now,
		ID:        participantID,
	}); err != nil {
		return target{}, fmt.Errorf("attach share payment: %w", err)
	}
	return tgt, nil
}

func apply(ctx context.Context, q dbgen.Querier, tgt target, mapped models.PaymentStatus, canonical gateway.Payment, now time.Time) (Outcome, afterCommit, error) {
	var announce afterCommit
	advanced, err := ledger.AdvanceTx(ctx, q, tgt.payment, mapped, canonical, now)
	if err != nil {
		return "", announce, err
	}
	switch advanced.Outcome {
	case ledger.AdvanceStale:
		if mapped == models.PaymentCompleted && advanced.Status != models.PaymentCompleted && advanced.Status != models.PaymentRefunded {
			log.Ctx(ctx).Error().
				Str("component", "webhook").
				Int64("payment_id", tgt.payment.ID).
				Str("payment_status", string(advanced.Status)).
				Str("external_payment_id", canonical.ID).
				Msg("Gateway settled money the ledger ignored; refund it at the gateway")
		}
		return OutcomeStale, announce, nil
	case ledger.AdvanceOverpayment:
		return OutcomeOverpayment, announce, ledger.MarkUnpaidFailedTx(ctx, q, tgt.payment.BookingID, now)
	case ledger.AdvanceAmountMismatch:
		return OutcomeAmountMismatch, announce, ledger.MarkUnpaidFailedTx(ctx, q, tgt.payment.BookingID, now)
	}

	failed := advanced.Status == models.PaymentFailed || advanced.Status == models.PaymentCancelled
	if !tgt.isSplit() {
		switch {
		case advanced.Settled():
			_, confirmed, err := ledger.SyncTx(ctx, q, tgt.payment.BookingID, now)
			if err != nil {
				return "", announce, err
			}
			if confirmed {
				booking, err := q.GetBooking(ctx, tgt.payment.BookingID)
				if err != nil {
					return "", announce, fmt.Errorf("reload booking: %w", err)
				}
				announce.confirmed = &booking
			}
		case failed:
			if err := ledger.MarkUnpaidFailedTx(ctx, q, tgt.payment.BookingID, now); err != nil {
				return "", announce, err
			}
		}
		return OutcomeApplied, announce, nil
	}

	var shareResult split.Result
	switch {
	case advanced.Settled():
		shareResult, err = split.OnParticipantPaidTx(ctx, q, tgt.splitID, tgt.participantID, now)
	case failed:
		shareResult, err = split.OnParticipantFailedTx(ctx, q, tgt.splitID, tgt.participantID, now)
		if err == nil {
			err = ledger.MarkUnpaidFailedTx(ctx, q, tgt.payment.BookingID, now)
		}
	default:
		return OutcomeApplied, announce, nil
	}
	if err != nil {
		return "", announce, err
	}
	announce.split = &shareResult

	switch shareResult.Outcome {
	case split.OutcomeExpired:
		log.Ctx(ctx).Error().
			Str("component", "webhook").
			Int64("split_payment_id", tgt.splitID).
			Int64("participant_id", tgt.participantID).
			Int64("payment_id", tgt.payment.ID).
			Msg("Share settled after its split payment expired; refund it at the gateway")
		return OutcomeSplitExpired, announce, nil
	case split.OutcomeCancelled:
		log.Ctx(ctx).Error().
			Str("component", "webhook").
			Int64("split_payment_id", tgt.splitID).
			Int64("participant_id", tgt.participantID).
			Int64("payment_id", tgt.payment.ID).
			Msg("Share settled after its split payment was cancelled; refund it at the gateway")
		return OutcomeSplitCancelled, announce, nil
	}
	return OutcomeApplied, announce, nil
}
