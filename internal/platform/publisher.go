package platform

import (
	"context"
	"strings"

	"github.com/maheshrc27/ghst/internal/models"
)

type Media struct {
	URL      string
	MimeType string
}

func (m Media) IsVideo() bool {
	return strings.HasPrefix(m.MimeType, "video/")
}

// PublishRequest carries everything a platform needs to create one post.
// AccessToken is already decrypted.
type PublishRequest struct {
	PlatformUserID string
	AccessToken    string
	Content        string
	Media          []Media
}

type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (platformPostID string, err error)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, req PublishRequest) (string, error)

func (f PublisherFunc) Publish(ctx context.Context, req PublishRequest) (string, error) {
	return f(ctx, req)
}

// Registry maps each supported platform to its publisher.
type Registry struct {
	publishers map[models.Platform]Publisher
}

func NewRegistry() *Registry {
	return &Registry{publishers: make(map[models.Platform]Publisher)}
}

func (r *Registry) Register(p models.Platform, pub Publisher) {
	r.publishers[p] = pub
}

func (r *Registry) Get(p models.Platform) (Publisher, bool) {
	pub, ok := r.publishers[p]
	return pub, ok
}

// Config holds per-platform client options.
type Config struct {
	Facebook  Options
	Instagram Options
	Twitter   Options
	LinkedIn  Options
}

// NewDefaultRegistry registers the HTTP publishers for every platform.
func NewDefaultRegistry(cfg Config) *Registry {
	r := NewRegistry()
	r.Register(models.PlatformFacebook, NewFacebookPublisher(cfg.Facebook))
	r.Register(models.PlatformInstagram, NewInstagramPublisher(cfg.Instagram))
	r.Register(models.PlatformTwitter, NewTwitterPublisher(cfg.Twitter))
	r.Register(models.PlatformLinkedIn, NewLinkedInPublisher(cfg.LinkedIn))
	return r
}
