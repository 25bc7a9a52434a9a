package cron

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/packdrop-engine/internal/events"
	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
)

const (
	EventFanoutJobName = "event-fanout"

	fanoutCursorName       = "events-fanout"
	fanoutGapsName         = "events-fanout-gaps"
	defaultFanoutBatchSize = 200
	defaultFanoutSettle    = 5 * time.Second
	defaultGapRetention    = 15 * time.Minute
	defaultPublishTimeout  = 10 * time.Second
	maxTrackedGaps         = 1000
)

// EventPublisher sends one encoded event and returns a handle for its ack.
type EventPublisher interface {
	Publish(context.Context, *gcppubsub.Message) PublishResult
}

// PublishResult resolves to the server message id once the publish is acked.
type PublishResult interface {
	Get(context.Context) (string, error)
}

// CursorStore keeps the fan-out read position and the ids it stepped over.
type CursorStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CursorKey(name string) string
	AddGaps(ctx context.Context, key string, ids []int64, seen time.Time) error
	Gaps(ctx context.Context, key string, since time.Time) ([]int64, error)
	ResolveGaps(ctx context.Context, key string, ids ...int64) error
}

// EventFanoutJobParams configures the event fan-out job.
type EventFanoutJobParams struct {
	Logger    *logger.Logger
	Events    events.Repository
	Publisher EventPublisher
	Cursor    CursorStore
	BatchSize int
	// Settle holds back rows younger than this so ids from transactions that
	// commit out of order are rarely stepped over.
	Settle time.Duration
	// GapRetention is how long an id the cursor stepped over is re-checked.
	// Events committing later than that are never published.
	GapRetention time.Duration
	Now          func() time.Time
}

// NewEventFanoutJob builds the job that publishes event rows to Pub/Sub.
func NewEventFanoutJob(params EventFanoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if params.Cursor == nil {
		return nil, fmt.Errorf("cursor store required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultFanoutBatchSize
	}
	settle := params.Settle
	if settle <= 0 {
		settle = defaultFanoutSettle
	}
	retention := params.GapRetention
	if retention <= 0 {
		retention = defaultGapRetention
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &eventFanoutJob{
		logg:         params.Logger,
		events:       params.Events,
		publisher:    params.Publisher,
		cursor:       params.Cursor,
		batchSize:    batch,
		settle:       settle,
		gapRetention: retention,
		now:          now,
	}, nil
}

type eventFanoutJob struct {
	logg         *logger.Logger
	events       events.Repository
	publisher    EventPublisher
	cursor       CursorStore
	batchSize    int
	settle       time.Duration
	gapRetention time.Duration
	now          func() time.Time
}

func (j *eventFanoutJob) Run(ctx context.Context) (Summary, error) {
	summary := Summary{"published": 0, "recovered": 0, "failed": 0}
	key := j.cursor.CursorKey(fanoutCursorName)
	gapKey := j.cursor.CursorKey(fanoutGapsName)
	after, err := j.readCursor(ctx, key)
	if err != nil {
		return summary, err
	}

	if err := j.recoverGaps(ctx, gapKey, summary); err != nil {
		return summary, err
	}

	rows, err := j.events.ListAfter(ctx, after, j.now().Add(-j.settle), j.batchSize)
	if err != nil {
		return summary, fmt.Errorf("list events after %d: %w", after, err)
	}
	if len(rows) == 0 {
		return summary, nil
	}

	// the cursor only moves past a contiguous run of acknowledged publishes
	acked, pubErr := j.publish(ctx, rows)
	summary["published"] += acked
	summary["failed"] += len(rows) - acked
	if acked == 0 {
		return summary, pubErr
	}
	next := rows[acked-1].ID

	gaps := missingIDs(after, rows[:acked])
	if len(gaps) > maxTrackedGaps {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"gaps":    len(gaps),
			"tracked": maxTrackedGaps,
		}), "event id gap too wide; tracking the newest ids only")
		gaps = gaps[len(gaps)-maxTrackedGaps:]
	}
	if err := j.cursor.AddGaps(ctx, gapKey, gaps, j.now()); err != nil {
		return summary, errors.Join(pubErr, fmt.Errorf("record event gaps: %w", err))
	}
	if err := j.cursor.Set(ctx, key, strconv.FormatInt(next, 10), 0); err != nil {
		return summary, errors.Join(pubErr, fmt.Errorf("advance event cursor: %w", err))
	}
	if pubErr != nil {
		return summary, pubErr
	}
	j.logg.Debug(j.logg.WithFields(ctx, map[string]any{
		"cursor": next,
		"gaps":   len(gaps),
	}), "events published")
	return summary, nil
}

// recoverGaps publishes stepped-over ids whose transactions have since
// committed.
func (j *eventFanoutJob) recoverGaps(ctx context.Context, gapKey string, summary Summary) error {
	ids, err := j.cursor.Gaps(ctx, gapKey, j.now().Add(-j.gapRetention))
	if err != nil {
		return fmt.Errorf("read event gaps: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	rows, err := j.events.ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load gap events: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	acked, pubErr := j.publish(ctx, rows)
	summary["recovered"] += acked
	summary["failed"] += len(rows) - acked
	done := make([]int64, acked)
	for i := range done {
		done[i] = rows[i].ID
	}
	if err := j.cursor.ResolveGaps(ctx, gapKey, done...); err != nil {
		return errors.Join(pubErr, fmt.Errorf("resolve event gaps: %w", err))
	}
	return pubErr
}

// publish sends rows in order and returns how many leading rows were acked.
func (j *eventFanoutJob) publish(ctx context.Context, rows []models.Event) (int, error) {
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	results := make([]PublishResult, len(rows))
	for i := range rows {
		body, attrs, err := events.Encode(rows[i])
		if err != nil {
			return 0, fmt.Errorf("encode event %d: %w", rows[i].ID, err)
		}
		results[i] = j.publisher.Publish(publishCtx, &gcppubsub.Message{Data: body, Attributes: attrs})
	}

	for i, result := range results {
		if result == nil {
			return i, errors.New("publisher returned nil result")
		}
		if _, err := result.Get(publishCtx); err != nil {
			return i, fmt.Errorf("publish event %d: %w", rows[i].ID, err)
		}
	}
	return len(results), nil
}

// missingIDs lists the ids between after and the last row that rows skip.
func missingIDs(after int64, rows []models.Event) []int64 {
	var gaps []int64
	prev := after
	for _, row := range rows {
		for id := prev + 1; id < row.ID; id++ {
			gaps = append(gaps, id)
		}
		prev = row.ID
	}
	return gaps
}

func (j *eventFanoutJob) readCursor(ctx context.Context, key string) (int64, error) {
	raw, err := j.cursor.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read event cursor: %w", err)
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse event cursor %q: %w", raw, err)
	}
	return value, nil
}

// NewPubSubPublisher adapts a Pub/Sub publisher to the fan-out job.
func NewPubSubPublisher(p *gcppubsub.Publisher) EventPublisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) PublishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
