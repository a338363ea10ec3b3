package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/pkg/logger"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestPublishJob(t *testing.T) {
	rdb := newTestRedis(t)
	p := NewProducer(rdb, 100)

	job := entity.NewGenerationJob(entity.JobTypeSceneRender, "PRJ_1", "SCN_1").WithSeed(99)
	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-42")

	id, err := p.PublishJob(ctx, job)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := rdb.XRange(context.Background(), string(StreamGeneration), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Values["data"], `"type":"scene_render"`)
	assert.Contains(t, msgs[0].Values["data"], `"request_id":"req-42"`)
}

func TestConsumerDeliversAndAcks(t *testing.T) {
	rdb := newTestRedis(t)
	p := NewProducer(rdb, 100)

	c := NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamGeneration,
		Group:        RenderWorkerGroup("test"),
		ConsumerName: "c1",
		BlockTimeout: 50 * time.Millisecond,
		Concurrency:  2,
	})

	var (
		mu   sync.Mutex
		seen []*entity.GenerationJob
	)
	received := make(chan struct{}, 2)
	handle := func(_ context.Context, msg *Message) error {
		var job entity.GenerationJob
		if err := msg.UnmarshalPayload(&job); err != nil {
			return err
		}
		mu.Lock()
		seen = append(seen, &job)
		mu.Unlock()
		received <- struct{}{}
		if job.Type == entity.JobTypeExportBuild {
			return errors.New("bundle failed")
		}
		return nil
	}
	c.RegisterHandler(string(entity.JobTypeAssetInitial), handle)
	c.RegisterHandler(string(entity.JobTypeExportBuild), handle)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	_, err := p.PublishJob(ctx, entity.NewGenerationJob(entity.JobTypeAssetInitial, "PRJ_1", "AST_1"))
	require.NoError(t, err)
	_, err = p.PublishJob(ctx, entity.NewGenerationJob(entity.JobTypeExportBuild, "PRJ_1", "EXP_1"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for messages")
		}
	}
	c.Stop()

	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()

	pending, err := rdb.XPending(ctx, string(StreamGeneration), string(RenderWorkerGroup("test"))).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)

	dead, err := rdb.XLen(ctx, StreamGeneration.DLQStream()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), dead)
}

func TestMessageContextRestoresTrace(t *testing.T) {
	msg := &Message{ID: "JOB_1", ProjectID: "PRJ_1"}
	msg.SetMetadata(MetaTraceID, "4bf92f3577b34da6a3ce929d0e0e4736")
	msg.SetMetadata(MetaSpanID, "00f067aa0ba902b7")
	msg.SetMetadata(MetaRequestID, "")

	ctx := messageContext(context.Background(), msg)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", logger.StringFromContext(ctx, logger.TraceIDKey))
	assert.Equal(t, "JOB_1", logger.StringFromContext(ctx, logger.JobIDKey))
	assert.Empty(t, msg.GetMetadata(MetaRequestID))
}
