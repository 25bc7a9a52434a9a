package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-engine/internal/events"
	"github.com/angelmondragon/packdrop-engine/internal/packs"
	"github.com/angelmondragon/packdrop-engine/internal/payments"
	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
)

const (
	PaymentStatusJobName = "payment-status"

	defaultPaymentLimit = 100
)

type paymentOutcome string

const (
	paymentAdvanced  paymentOutcome = "advanced"
	paymentUnchanged paymentOutcome = "unchanged"
	paymentIgnored   paymentOutcome = "ignored"
)

// PaymentStatusJobParams configures the payment status reconciler.
type PaymentStatusJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Payments    payments.Repository
	Packs       packs.Repository
	Events      events.Repository
	Processor   payments.ProcessorClient
	Limit       int
	CallTimeout time.Duration
}

// NewPaymentStatusJob builds the payment status reconciler.
func NewPaymentStatusJob(params PaymentStatusJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Packs == nil {
		return nil, fmt.Errorf("packs repository required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("processor client required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPaymentLimit
	}
	timeout := params.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &paymentStatusJob{
		logg:        params.Logger,
		db:          params.DB,
		payments:    params.Payments,
		packs:       params.Packs,
		events:      params.Events,
		processor:   params.Processor,
		limit:       limit,
		callTimeout: timeout,
	}, nil
}

type paymentStatusJob struct {
	logg        *logger.Logger
	db          txRunner
	payments    payments.Repository
	packs       packs.Repository
	events      events.Repository
	processor   payments.ProcessorClient
	limit       int
	callTimeout time.Duration
}

func (j *paymentStatusJob) Run(ctx context.Context) (Summary, error) {
	rows, err := j.payments.ListNonTerminal(ctx, j.limit)
	if err != nil {
		return nil, fmt.Errorf("list non-terminal payments: %w", err)
	}

	summary := Summary{
		string(paymentAdvanced):  0,
		string(paymentUnchanged): 0,
		string(paymentIgnored):   0,
	}
	var errs error
	for i := range rows {
		outcome, err := j.reconcileOne(ctx, &rows[i])
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		summary[string(outcome)]++
	}
	return summary, errs
}

func (j *paymentStatusJob) reconcileOne(ctx context.Context, payment *models.Payment) (paymentOutcome, error) {
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"payment_id":   payment.ID.String(),
		"payment_kind": payment.Kind,
		"external_id":  payment.ExternalID,
	})

	callCtx, cancel := context.WithTimeout(ctx, j.callTimeout)
	reported, err := j.processor.GetTransferStatus(callCtx, payment.Kind, payment.ExternalID)
	cancel()
	if err != nil {
		j.logg.Warn(j.logg.WithField(logCtx, "error", err.Error()), "processor status unavailable; leaving payment as is")
		return paymentUnchanged, nil
	}
	if reported == payment.Status {
		return paymentUnchanged, nil
	}

	outcome := paymentUnchanged
	err = j.db.WithTx(logCtx, func(tx *gorm.DB) error {
		payRepo := j.payments.WithTx(tx)
		current, err := payRepo.FindForUpdate(logCtx, payment.ID)
		if err != nil || current == nil {
			return err
		}
		if current.Status == reported {
			return nil
		}
		if !payments.CanAdvance(current.Status, reported) {
			outcome = paymentIgnored
			j.logg.Warn(j.logg.WithFields(logCtx, map[string]any{
				"current_status":  current.Status,
				"reported_status": reported,
			}), "processor status would regress payment; ignoring")
			return nil
		}

		var reason *string
		if reported == enums.PaymentStatusFailed {
			msg := "processor reported failure"
			reason = &msg
		}
		advanced, err := payRepo.Advance(logCtx, current.ID, current.Status, reported, reason)
		if err != nil || !advanced {
			return err
		}
		eventsRepo := j.events.WithTx(tx)
		if _, err := eventsRepo.Record(logCtx, events.Entry{
			Action:        enums.EventActionUpdate,
			EntityType:    enums.EventEntityPayment,
			EntityID:      current.ID,
			UserAccountID: current.PayerID,
		}); err != nil {
			return err
		}
		if payments.ReachesConfirmed(current.Status, reported) {
			if err := j.fulfill(logCtx, tx, current); err != nil {
				return err
			}
		}
		outcome = paymentAdvanced
		j.logg.Info(j.logg.WithFields(logCtx, map[string]any{
			"from_status": current.Status,
			"to_status":   reported,
		}), "payment status advanced")
		return nil
	})
	if err != nil {
		return paymentUnchanged, fmt.Errorf("advance payment %s: %w", payment.ID, err)
	}
	return outcome, nil
}

// fulfill hands the purchased pack to the payer the first time the payment
// reaches Confirmed. Payouts carry no pack.
func (j *paymentStatusJob) fulfill(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	if payment.Kind == enums.PaymentKindPayout || payment.PackID == nil || payment.PayerID == nil {
		return nil
	}
	packRepo := j.packs.WithTx(tx)
	pack, err := packRepo.FindForUpdate(ctx, *payment.PackID)
	if err != nil {
		return err
	}
	if pack == nil {
		j.logg.Warn(ctx, "confirmed payment references a missing pack")
		return nil
	}
	if pack.OwnerID != nil {
		if *pack.OwnerID != *payment.PayerID {
			j.logg.Warn(j.logg.WithField(ctx, "owner_id", pack.OwnerID.String()), "confirmed payment for a pack owned by another account")
		}
		return nil
	}
	assigned, err := packRepo.AssignOwner(ctx, pack.ID, *payment.PayerID)
	if err != nil || !assigned {
		return err
	}
	_, err = j.events.WithTx(tx).Record(ctx, events.Entry{
		Action:        enums.EventActionUpdate,
		EntityType:    enums.EventEntityPack,
		EntityID:      pack.ID,
		UserAccountID: payment.PayerID,
	})
	return err
}
