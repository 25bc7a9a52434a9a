package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-engine/internal/events"
	"github.com/angelmondragon/packdrop-engine/internal/packs"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
)

const AuctionExpirationJobName = "auction-expiration"

// AuctionExpirationJobParams configures the auction expiration job.
type AuctionExpirationJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Packs  packs.Repository
	Events events.Repository
	Limit  int
	Now    func() time.Time
}

// NewAuctionExpirationJob builds the job that closes ended auctions nobody
// bid on.
func NewAuctionExpirationJob(params AuctionExpirationJobParams) (Job, error) {
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
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultAuctionLimit
	}
	return &auctionExpirationJob{
		logg:   params.Logger,
		db:     params.DB,
		packs:  params.Packs,
		events: params.Events,
		limit:  limit,
		now:    now,
	}, nil
}

type auctionExpirationJob struct {
	logg   *logger.Logger
	db     txRunner
	packs  packs.Repository
	events events.Repository
	limit  int
	now    func() time.Time
}

func (j *auctionExpirationJob) Run(ctx context.Context) (Summary, error) {
	now := j.now()
	due, err := j.packs.ListAuctionsToExpire(ctx, now, j.limit)
	if err != nil {
		return nil, fmt.Errorf("list auctions to expire: %w", err)
	}

	summary := Summary{"expired": 0, "skipped": 0}
	var errs error
	for i := range due {
		expired, err := j.expire(ctx, due[i].ID, now)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if expired {
			summary["expired"]++
		} else {
			summary["skipped"]++
		}
	}
	return summary, errs
}

func (j *auctionExpirationJob) expire(ctx context.Context, packID uuid.UUID, now time.Time) (bool, error) {
	logCtx := j.logg.WithPackID(ctx, packID.String())
	expired := false
	err := j.db.WithTx(logCtx, func(tx *gorm.DB) error {
		packRepo := j.packs.WithTx(tx)
		pack, err := packRepo.FindForUpdate(logCtx, packID)
		if err != nil || pack == nil {
			return err
		}
		// Expire re-checks that no bid landed since the listing.
		ok, err := packRepo.Expire(logCtx, pack.ID, now)
		if err != nil || !ok {
			return err
		}
		if _, err := j.events.WithTx(tx).Record(logCtx, events.Entry{
			Action:     enums.EventActionUpdate,
			EntityType: enums.EventEntityPack,
			EntityID:   pack.ID,
		}); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("expire auction %s: %w", packID, err)
	}
	if expired {
		j.logg.Info(logCtx, "auction expired without bids")
	}
	return expired, nil
}
