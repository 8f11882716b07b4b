package platform

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

const graphAPIVersion = "v21.0"

type FacebookPublisher struct {
	c *client
}

func NewFacebookPublisher(opts Options) *FacebookPublisher {
	opts = opts.withDefaults("https://graph.facebook.com/" + graphAPIVersion)
	return &FacebookPublisher{c: newClient("facebook", opts)}
}

// Publish posts to a page feed, or to the page photos edge when the first
// media item is an image.
func (p *FacebookPublisher) Publish(ctx context.Context, req PublishRequest) (string, error) {
	if req.PlatformUserID == "" {
		return "", p.c.errorf(KindValidation, nil, "missing page id")
	}

	path := fmt.Sprintf("/%s/feed", req.PlatformUserID)
	payload := map[string]interface{}{
		"message":      req.Content,
		"access_token": req.AccessToken,
	}

	if len(req.Media) > 0 {
		m := req.Media[0]
		if m.IsVideo() {
			path = fmt.Sprintf("/%s/videos", req.PlatformUserID)
			payload = map[string]interface{}{
				"file_url":     m.URL,
				"description":  req.Content,
				"access_token": req.AccessToken,
			}
		} else {
			path = fmt.Sprintf("/%s/photos", req.PlatformUserID)
			payload = map[string]interface{}{
				"url":          m.URL,
				"caption":      req.Content,
				"access_token": req.AccessToken,
			}
		}
	}

	resp, err := p.c.postJSON(ctx, path, nil, payload)
	if err != nil {
		return "", err
	}

	// photo uploads return the feed post under post_id
	id := gjson.GetBytes(resp.Body, "post_id").String()
	if id == "" {
		id = gjson.GetBytes(resp.Body, "id").String()
	}
	if id == "" {
		return "", p.c.errorf(KindServer, nil, "no post ID returned from Facebook")
	}
	return id, nil
}
