package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-engine/internal/auctions"
	"github.com/angelmondragon/packdrop-engine/internal/events"
	"github.com/angelmondragon/packdrop-engine/internal/notifications"
	"github.com/angelmondragon/packdrop-engine/internal/packs"
	"github.com/angelmondragon/packdrop-engine/pkg/db"
	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
)

const (
	AuctionCompletionJobName = "auction-completion"

	defaultAuctionLimit       = 50
	completionNotifySavepoint = "auction_notifications"
)

// AuctionCompletionJobParams configures the auction completion job.
type AuctionCompletionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Packs         packs.Repository
	Events        events.Repository
	Notifications notifications.Service
	Limit         int
	Now           func() time.Time
}

// NewAuctionCompletionJob builds the job that hands ended auctions to their
// highest bidder.
func NewAuctionCompletionJob(params AuctionCompletionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Packs == nil {
		return nil, fmt.Errorf("packs repository required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultAuctionLimit
	}
	return &auctionCompletionJob{
		logg:          params.Logger,
		db:            params.DB,
		packs:         params.Packs,
		events:        params.Events,
		notifications: params.Notifications,
		limit:         limit,
		now:           now,
	}, nil
}

type auctionCompletionJob struct {
	logg          *logger.Logger
	db            txRunner
	packs         packs.Repository
	events        events.Repository
	notifications notifications.Service
	limit         int
	now           func() time.Time
}

func (j *auctionCompletionJob) Run(ctx context.Context) (Summary, error) {
	now := j.now()
	due, err := j.packs.ListAuctionsToResolve(ctx, now, j.limit)
	if err != nil {
		return nil, fmt.Errorf("list auctions to resolve: %w", err)
	}

	summary := Summary{"resolved": 0, "skipped": 0}
	var errs error
	for i := range due {
		resolved, err := j.resolve(ctx, due[i].ID, now)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if resolved {
			summary["resolved"]++
		} else {
			summary["skipped"]++
		}
	}
	return summary, errs
}

func (j *auctionCompletionJob) resolve(ctx context.Context, packID uuid.UUID, now time.Time) (bool, error) {
	logCtx := j.logg.WithPackID(ctx, packID.String())
	resolved := false
	err := j.db.WithTx(logCtx, func(tx *gorm.DB) error {
		packRepo := j.packs.WithTx(tx)
		pack, err := packRepo.FindForUpdate(logCtx, packID)
		if err != nil {
			return err
		}
		if pack == nil || pack.ActiveBid == nil || pack.AuctionStatus != enums.AuctionStatusOpen {
			return nil
		}
		winner := pack.ActiveBid.UserAccountID
		ok, err := packRepo.Resolve(logCtx, pack.ID, winner, now)
		if err != nil || !ok {
			return err
		}
		if _, err := j.events.WithTx(tx).Record(logCtx, events.Entry{
			Action:        enums.EventActionUpdate,
			EntityType:    enums.EventEntityPack,
			EntityID:      pack.ID,
			UserAccountID: &winner,
		}); err != nil {
			return err
		}
		resolved = true
		j.notifyOutcome(logCtx, tx, pack)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("resolve auction %s: %w", packID, err)
	}
	if resolved {
		j.logg.Info(logCtx, "auction resolved")
	}
	return resolved, nil
}

// notifyOutcome tells the winner and every other bidder how the auction ended.
func (j *auctionCompletionJob) notifyOutcome(ctx context.Context, tx *gorm.DB, pack *models.Pack) {
	winner := pack.ActiveBid.UserAccountID
	vars := auctions.PackVariables(pack.Template, pack.ActiveBid.AmountCents)

	err := db.WithSavepoint(tx, completionNotifySavepoint, func(tx *gorm.DB) error {
		if _, err := j.notifications.Enqueue(ctx, tx, notifications.Input{
			Type:          enums.NotificationTypeAuctionWon,
			UserAccountID: winner,
			Variables:     vars,
		}); err != nil {
			return err
		}
		bidders, err := j.packs.WithTx(tx).ListBidders(ctx, pack.ID)
		if err != nil {
			return err
		}
		for _, bidder := range bidders {
			if bidder == winner {
				continue
			}
			if _, err := j.notifications.Enqueue(ctx, tx, notifications.Input{
				Type:          enums.NotificationTypeAuctionLost,
				UserAccountID: bidder,
				Variables:     vars,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "auction notifications skipped")
	}
}
