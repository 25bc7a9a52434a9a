package cron

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packdrop-engine/internal/events"
	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []*gcppubsub.Message
	failOn   int64
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) PublishResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	var body events.Message
	if err := json.Unmarshal(msg.Data, &body); err == nil && body.ID == p.failOn {
		return fakeResult{err: errors.New("publish rejected")}
	}
	p.messages = append(p.messages, msg)
	return fakeResult{}
}

type fakeCursor struct {
	values map[string]string
	gaps   map[int64]time.Time
}

func newFakeCursor() *fakeCursor {
	return &fakeCursor{values: map[string]string{}, gaps: map[int64]time.Time{}}
}

func (c *fakeCursor) Get(_ context.Context, key string) (string, error) {
	v, ok := c.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (c *fakeCursor) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.values[key] = value.(string)
	return nil
}

func (c *fakeCursor) CursorKey(name string) string { return "pd:cursor:" + name }

func (c *fakeCursor) AddGaps(_ context.Context, _ string, ids []int64, seen time.Time) error {
	for _, id := range ids {
		c.gaps[id] = seen
	}
	return nil
}

func (c *fakeCursor) Gaps(_ context.Context, _ string, since time.Time) ([]int64, error) {
	var ids []int64
	for id, seen := range c.gaps {
		if seen.Before(since) {
			delete(c.gaps, id)
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (c *fakeCursor) ResolveGaps(_ context.Context, _ string, ids ...int64) error {
	for _, id := range ids {
		delete(c.gaps, id)
	}
	return nil
}

func recordEvents(t *testing.T, s *store, n int) {
	t.Helper()
	repo := events.NewRepository(s.client.DB())
	for i := 0; i < n; i++ {
		_, err := repo.Record(context.Background(), events.Entry{
			Action:     enums.EventActionUpdate,
			EntityType: enums.EventEntityPack,
			EntityID:   uuid.New(),
		})
		require.NoError(t, err)
	}
}

func newFanoutJob(t *testing.T, s *store, pub EventPublisher, cursor CursorStore, now time.Time) Job {
	t.Helper()
	job, err := NewEventFanoutJob(EventFanoutJobParams{
		Logger:    testLogger(),
		Events:    events.NewRepository(s.client.DB()),
		Publisher: pub,
		Cursor:    cursor,
		BatchSize: 2,
		Settle:    time.Second,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)
	return job
}

func TestEventFanout_PublishesInBatchesAndAdvancesCursor(t *testing.T) {
	s := newStore(t)
	recordEvents(t, s, 3)
	pub := &fakePublisher{}
	cursor := newFakeCursor()
	job := newFanoutJob(t, s, pub, cursor, time.Now().UTC().Add(time.Hour))

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary["published"])
	assert.Equal(t, "2", cursor.values["pd:cursor:events-fanout"])

	summary, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary["published"])
	assert.Equal(t, "3", cursor.values["pd:cursor:events-fanout"])

	require.Len(t, pub.messages, 3)
	assert.Equal(t, "pack", pub.messages[0].Attributes["entity_type"])
	assert.Equal(t, "1", pub.messages[0].Attributes["event_id"])

	summary, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary["published"])
}

func TestEventFanout_FailureHoldsCursorAtLastAcknowledged(t *testing.T) {
	s := newStore(t)
	recordEvents(t, s, 2)
	pub := &fakePublisher{failOn: 2}
	cursor := newFakeCursor()
	job := newFanoutJob(t, s, pub, cursor, time.Now().UTC().Add(time.Hour))

	summary, err := job.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, summary["published"])
	assert.Equal(t, 1, summary["failed"])
	assert.Equal(t, "1", cursor.values["pd:cursor:events-fanout"])

	pub.failOn = 0
	_, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.values["pd:cursor:events-fanout"])
}

func TestEventFanout_WaitsForSettleWindow(t *testing.T) {
	s := newStore(t)
	recordEvents(t, s, 1)
	pub := &fakePublisher{}
	cursor := newFakeCursor()
	job := newFanoutJob(t, s, pub, cursor, time.Now().UTC().Add(-time.Hour))

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary["published"])
	assert.Empty(t, cursor.values)
}

func TestEventFanout_RejectsCorruptCursor(t *testing.T) {
	s := newStore(t)
	cursor := newFakeCursor()
	cursor.values["pd:cursor:events-fanout"] = "abc"
	job := newFanoutJob(t, s, &fakePublisher{}, cursor, time.Now().UTC())

	_, err := job.Run(context.Background())
	assert.Error(t, err)
}

func publishedIDs(t *testing.T, pub *fakePublisher) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(pub.messages))
	for _, msg := range pub.messages {
		var body events.Message
		require.NoError(t, json.Unmarshal(msg.Data, &body))
		ids = append(ids, body.ID)
	}
	return ids
}

func TestEventFanout_LateCommitIsPublishedFromGap(t *testing.T) {
	s := newStore(t)
	recordEvents(t, s, 3)
	// event 2 belongs to a transaction that has not committed yet
	var late models.Event
	require.NoError(t, s.client.DB().First(&late, "id = ?", 2).Error)
	require.NoError(t, s.client.DB().Delete(&models.Event{}, 2).Error)

	pub := &fakePublisher{}
	cursor := newFakeCursor()
	job, err := NewEventFanoutJob(EventFanoutJobParams{
		Logger:    testLogger(),
		Events:    events.NewRepository(s.client.DB()),
		Publisher: pub,
		Cursor:    cursor,
		Settle:    time.Second,
		Now:       func() time.Time { return time.Now().UTC().Add(time.Hour) },
	})
	require.NoError(t, err)

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary["published"])
	assert.Equal(t, "3", cursor.values["pd:cursor:events-fanout"])
	assert.Contains(t, cursor.gaps, int64(2))

	require.NoError(t, s.client.DB().Create(&late).Error)

	summary, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary["recovered"])
	assert.Equal(t, 0, summary["published"])
	assert.Empty(t, cursor.gaps)
	assert.Equal(t, []int64{1, 3, 2}, publishedIDs(t, pub))

	summary, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary["recovered"])
	assert.Len(t, pub.messages, 3)
}

func TestEventFanout_GapsExpireAfterRetention(t *testing.T) {
	s := newStore(t)
	recordEvents(t, s, 2)
	require.NoError(t, s.client.DB().Delete(&models.Event{}, 1).Error)

	now := time.Now().UTC().Add(time.Hour)
	pub := &fakePublisher{}
	cursor := newFakeCursor()
	job, err := NewEventFanoutJob(EventFanoutJobParams{
		Logger:       testLogger(),
		Events:       events.NewRepository(s.client.DB()),
		Publisher:    pub,
		Cursor:       cursor,
		Settle:       time.Second,
		GapRetention: time.Minute,
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)

	_, err = job.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, cursor.gaps, int64(1))

	// the transaction that held id 1 rolled back; the gap ages out
	now = now.Add(2 * time.Minute)
	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary["recovered"])
	assert.Empty(t, cursor.gaps)
}

func TestMissingIDs(t *testing.T) {
	rows := []models.Event{{ID: 4}, {ID: 5}, {ID: 8}}
	assert.Equal(t, []int64{2, 3, 6, 7}, missingIDs(1, rows))
	assert.Empty(t, missingIDs(3, rows[:2]))
}

func TestNewPubSubPublisherWithoutTopic(t *testing.T) {
	var pub EventPublisher = NewPubSubPublisher(nil)
	assert.Nil(t, pub)
}
