// Package generation 负责后台图像生成任务的派发与执行
package generation

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/pkg/logger"
)

// Dispatcher 任务派发器，派发后立即返回，不等待结果
type Dispatcher interface {
	Dispatch(ctx context.Context, job *entity.GenerationJob) error
}

// Detach 返回脱离请求生命周期的 context，保留日志字段与追踪上下文
func Detach(ctx context.Context) context.Context {
	bg := logger.CopyContext(context.Background(), ctx)
	return trace.ContextWithSpanContext(bg, trace.SpanContextFromContext(ctx))
}

// InlineDispatcher 在当前进程的 goroutine 中执行任务
type InlineDispatcher struct {
	executor *Executor
	wg       sync.WaitGroup
}

// NewInlineDispatcher 创建进程内派发器
func NewInlineDispatcher(executor *Executor) *InlineDispatcher {
	return &InlineDispatcher{executor: executor}
}

// Dispatch 启动 goroutine 执行任务
func (d *InlineDispatcher) Dispatch(ctx context.Context, job *entity.GenerationJob) error {
	bg := Detach(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.executor.Execute(bg, job)
	}()
	return nil
}

// Wait 等待所有已派发任务结束，用于优雅关闭
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}

// JobPublisher 任务发布接口
type JobPublisher interface {
	PublishJob(ctx context.Context, job *entity.GenerationJob) (string, error)
}

// StreamDispatcher 将任务投递到 Redis Stream，由 render-worker 执行
type StreamDispatcher struct {
	publisher JobPublisher
	executor  *Executor
}

// NewStreamDispatcher 创建 stream 派发器，executor 用于投递失败时记录失败状态
func NewStreamDispatcher(publisher JobPublisher, executor *Executor) *StreamDispatcher {
	return &StreamDispatcher{publisher: publisher, executor: executor}
}

// Dispatch 发布任务
func (d *StreamDispatcher) Dispatch(ctx context.Context, job *entity.GenerationJob) error {
	msgID, err := d.publisher.PublishJob(ctx, job)
	if err != nil {
		err = fmt.Errorf("failed to publish job %s: %w", job.ID, err)
		d.executor.MarkFailed(Detach(ctx), job, err)
		return err
	}
	logger.Debug(ctx, "generation job published",
		"job_id", job.ID,
		"job_type", string(job.Type),
		"message_id", msgID,
	)
	return nil
}
