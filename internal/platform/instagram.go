package platform

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

type InstagramPublisher struct {
	c *client
}

func NewInstagramPublisher(opts Options) *InstagramPublisher {
	opts = opts.withDefaults("https://graph.instagram.com/" + graphAPIVersion)
	return &InstagramPublisher{c: newClient("instagram", opts)}
}

// Publish creates a media container (a carousel when there is more than one
// item) and then publishes it.
func (p *InstagramPublisher) Publish(ctx context.Context, req PublishRequest) (string, error) {
	if len(req.Media) == 0 {
		return "", p.c.errorf(KindValidation, nil, "instagram posts require at least one media item")
	}

	var containerID string
	var err error
	if len(req.Media) == 1 {
		containerID, err = p.createContainer(ctx, req, req.Media[0], false)
	} else {
		containerID, err = p.createCarousel(ctx, req)
	}
	if err != nil {
		return "", err
	}

	return p.publishContainer(ctx, req, containerID)
}

func (p *InstagramPublisher) createContainer(ctx context.Context, req PublishRequest, m Media, carouselItem bool) (string, error) {
	payload := map[string]interface{}{
		"access_token": req.AccessToken,
	}
	if m.IsVideo() {
		payload["video_url"] = m.URL
		payload["media_type"] = "REELS"
	} else {
		payload["image_url"] = m.URL
	}
	if carouselItem {
		payload["is_carousel_item"] = true
	} else {
		payload["caption"] = req.Content
	}
	return p.post(ctx, fmt.Sprintf("/%s/media", req.PlatformUserID), payload)
}

func (p *InstagramPublisher) createCarousel(ctx context.Context, req PublishRequest) (string, error) {
	children := make([]string, 0, len(req.Media))
	for _, m := range req.Media {
		id, err := p.createContainer(ctx, req, m, true)
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	payload := map[string]interface{}{
		"media_type":   "CAROUSEL",
		"caption":      req.Content,
		"children":     children,
		"access_token": req.AccessToken,
	}
	return p.post(ctx, fmt.Sprintf("/%s/media", req.PlatformUserID), payload)
}

func (p *InstagramPublisher) publishContainer(ctx context.Context, req PublishRequest, containerID string) (string, error) {
	payload := map[string]string{
		"creation_id":  containerID,
		"access_token": req.AccessToken,
	}
	return p.post(ctx, fmt.Sprintf("/%s/media_publish", req.PlatformUserID), payload)
}

func (p *InstagramPublisher) post(ctx context.Context, path string, payload interface{}) (string, error) {
	resp, err := p.c.postJSON(ctx, path, nil, payload)
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(resp.Body, "id").String()
	if id == "" {
		return "", p.c.errorf(KindServer, nil, "no media ID returned from Instagram")
	}
	return id, nil
}
