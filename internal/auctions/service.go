package auctions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-engine/internal/events"
	"github.com/angelmondragon/packdrop-engine/internal/notifications"
	"github.com/angelmondragon/packdrop-engine/internal/packs"
	"github.com/angelmondragon/packdrop-engine/internal/users"
	"github.com/angelmondragon/packdrop-engine/pkg/db"
	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
)

const (
	admitSavepoint  = "bid_admission"
	notifySavepoint = "bid_notifications"
)

// BidRequest is a bid submitted by an authenticated user.
type BidRequest struct {
	PackID      uuid.UUID `json:"packId" validate:"required"`
	ExternalID  string    `json:"externalId" validate:"required"`
	AmountCents int64     `json:"amountCents" validate:"gt=0"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the bid admission service.
type ServiceParams struct {
	DB            txRunner
	Packs         packs.Repository
	Bids          BidRepository
	Users         *users.Repository
	Events        events.Repository
	Notifications notifications.Service
	Logger        *logger.Logger
	Now           func() time.Time
}

// Service admits auction bids.
type Service struct {
	db            txRunner
	packs         packs.Repository
	bids          BidRepository
	users         *users.Repository
	events        events.Repository
	notifications notifications.Service
	logg          *logger.Logger
	now           func() time.Time
}

// NewService validates dependencies and builds the bid admission service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Packs == nil {
		return nil, fmt.Errorf("packs repository required")
	}
	if params.Bids == nil {
		return nil, fmt.Errorf("bids repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		db:            params.DB,
		packs:         params.Packs,
		bids:          params.Bids,
		users:         params.Users,
		events:        params.Events,
		notifications: params.Notifications,
		logg:          params.Logger,
		now:           now,
	}, nil
}

// AdmitBid validates req against the pack's current highest bid and, when it
// wins, records the bid and points the pack at it. When tx is nil the work
// runs in its own transaction; otherwise it joins the caller's.
func (s *Service) AdmitBid(ctx context.Context, req BidRequest, tx *gorm.DB) (bool, error) {
	if err := validateRequest(req); err != nil {
		return false, err
	}
	ctx = s.logg.WithPackID(ctx, req.PackID.String())

	run := func(tx *gorm.DB) error { return s.admit(ctx, tx, req) }
	var err error
	if tx != nil {
		err = run(tx)
	} else {
		err = s.db.WithTx(ctx, run)
	}
	if err != nil {
		switch {
		case pkgerrors.As(err) != nil:
		case db.IsRetryableConflict(err):
			err = pkgerrors.Wrap(pkgerrors.CodeConflict, err, "pack is busy, retry the bid")
		default:
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "admit bid")
		}
		return false, err
	}
	return true, nil
}

func (s *Service) admit(ctx context.Context, tx *gorm.DB, req BidRequest) error {
	pack, err := s.packs.WithTx(tx).FindForUpdate(ctx, req.PackID)
	if err != nil {
		return fmt.Errorf("load pack: %w", err)
	}
	if pack == nil {
		return ErrPackNotFound
	}
	if pack.ActiveBidID != nil && pack.ActiveBid == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "active bid missing for pack")
	}

	previous := pack.ActiveBid
	if previous != nil && req.AmountCents <= previous.AmountCents {
		return ErrBidTooLow
	}

	account, err := s.users.WithTx(tx).FindByExternalID(ctx, req.ExternalID)
	if err != nil {
		return fmt.Errorf("load user account: %w", err)
	}
	if account == nil {
		return ErrAccountNotRegistered
	}
	ctx = s.logg.WithUserID(ctx, account.ID.String())

	if !packs.AcceptsBids(pack, s.now()) {
		return ErrBiddingClosed
	}

	bid := &models.Bid{
		PackID:        pack.ID,
		UserAccountID: account.ID,
		AmountCents:   req.AmountCents,
	}
	// A lost swap must not leave the bid or its events in a caller's tx.
	err = db.WithSavepoint(tx, admitSavepoint, func(tx *gorm.DB) error {
		return s.recordBid(ctx, tx, pack, bid)
	})
	if err != nil {
		return err
	}

	s.notifyBidders(ctx, tx, pack, previous, bid)

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"bid_id":       bid.ID.String(),
		"amount_cents": bid.AmountCents,
	}), "bid admitted")
	return nil
}

// recordBid inserts the bid, swaps it in as the pack's active bid and records
// the bid and pack events.
func (s *Service) recordBid(ctx context.Context, tx *gorm.DB, pack *models.Pack, bid *models.Bid) error {
	if err := s.bids.WithTx(tx).Create(ctx, bid); err != nil {
		return fmt.Errorf("insert bid: %w", err)
	}
	eventsRepo := s.events.WithTx(tx)
	if _, err := eventsRepo.Record(ctx, events.Entry{
		Action:        enums.EventActionCreate,
		EntityType:    enums.EventEntityBid,
		EntityID:      bid.ID,
		UserAccountID: &bid.UserAccountID,
	}); err != nil {
		return fmt.Errorf("record bid event: %w", err)
	}

	swapped, err := s.packs.WithTx(tx).SetActiveBid(ctx, pack.ID, pack.ActiveBidID, bid.ID)
	if err != nil {
		return fmt.Errorf("update active bid: %w", err)
	}
	if !swapped {
		return ErrBidTooLow
	}
	if _, err := eventsRepo.Record(ctx, events.Entry{
		Action:        enums.EventActionUpdate,
		EntityType:    enums.EventEntityPack,
		EntityID:      pack.ID,
		UserAccountID: &bid.UserAccountID,
	}); err != nil {
		return fmt.Errorf("record pack event: %w", err)
	}
	return nil
}

// notifyBidders queues outbid/high-bid notifications under a savepoint so a
// failure rolls back only the notifications.
func (s *Service) notifyBidders(ctx context.Context, tx *gorm.DB, pack *models.Pack, previous *models.Bid, bid *models.Bid) {
	if previous != nil && previous.UserAccountID == bid.UserAccountID {
		return
	}
	vars := PackVariables(pack.Template, bid.AmountCents)

	err := db.WithSavepoint(tx, notifySavepoint, func(tx *gorm.DB) error {
		if previous != nil {
			if _, err := s.notifications.Enqueue(ctx, tx, notifications.Input{
				Type:          enums.NotificationTypeBidOutbid,
				UserAccountID: previous.UserAccountID,
				Variables:     vars,
			}); err != nil {
				return err
			}
		}
		_, err := s.notifications.Enqueue(ctx, tx, notifications.Input{
			Type:          enums.NotificationTypeBidHigh,
			UserAccountID: bid.UserAccountID,
			Variables:     vars,
		})
		return err
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "bid notifications skipped")
	}
}

// IsRejection reports whether err is one of the bid admission rejections.
func IsRejection(err error) bool {
	return errors.Is(err, ErrPackNotFound) ||
		errors.Is(err, ErrBidTooLow) ||
		errors.Is(err, ErrAccountNotRegistered) ||
		errors.Is(err, ErrBiddingClosed) ||
		pkgerrors.CodeOf(err) == pkgerrors.CodeValidation
}
