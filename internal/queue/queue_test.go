package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
)

type recordingPublisher struct {
	ids []int64
}

func (r *recordingPublisher) PublishPost(_ context.Context, postID int64) error {
	r.ids = append(r.ids, postID)
	return nil
}

func TestHandlePublishPostTask(t *testing.T) {
	pub := &recordingPublisher{}
	q := NewQueue(pub)

	task, err := NewPublishPostTask(42)
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TaskTypePublishPost {
		t.Errorf("type = %q", task.Type())
	}
	if err := q.HandlePublishPostTask(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	if len(pub.ids) != 1 || pub.ids[0] != 42 {
		t.Errorf("published = %v", pub.ids)
	}
}

func TestHandlePublishPostTaskBadPayload(t *testing.T) {
	q := NewQueue(&recordingPublisher{})
	for _, payload := range []string{`not json`, `{}`} {
		err := q.HandlePublishPostTask(context.Background(), asynq.NewTask(TaskTypePublishPost, []byte(payload)))
		if !errors.Is(err, asynq.SkipRetry) {
			t.Errorf("payload %q: err = %v, want SkipRetry", payload, err)
		}
	}
}
