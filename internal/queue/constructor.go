package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
)

// Scheduler enqueues a delayed publish for a post. The cron sweep still
// picks up due posts if the task is lost.
type Scheduler interface {
	SchedulePost(ctx context.Context, postID int64, delay time.Duration) error
}

type AsynqScheduler struct {
	client *asynq.Client
}

func NewAsynqScheduler(client *asynq.Client) *AsynqScheduler {
	return &AsynqScheduler{client: client}
}

func (s *AsynqScheduler) SchedulePost(ctx context.Context, postID int64, delay time.Duration) error {
	task, err := NewPublishPostTask(postID)
	if err != nil {
		return err
	}

	info, err := s.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.MaxRetry(1))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("publish task scheduled", "post_id", postID, "task_id", info.ID, "delay", delay.String())
	return nil
}

func NewPublishPostTask(postID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, payload), nil
}
