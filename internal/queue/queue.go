package queue

import "context"

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

// PostPublisher is the part of the publisher job the worker drives.
type PostPublisher interface {
	PublishPost(ctx context.Context, postID int64) error
}

type Queue struct {
	publisher PostPublisher
}

func NewQueue(publisher PostPublisher) *Queue {
	return &Queue{publisher: publisher}
}
