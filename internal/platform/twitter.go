package platform

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
)

type TwitterPublisher struct {
	c *client
}

func NewTwitterPublisher(opts Options) *TwitterPublisher {
	opts = opts.withDefaults("https://api.twitter.com")
	return &TwitterPublisher{c: newClient("twitter", opts)}
}

// Publish creates a tweet with the user-context OAuth 2.0 token. Media URLs
// are appended to the text; native media upload is not supported.
func (p *TwitterPublisher) Publish(ctx context.Context, req PublishRequest) (string, error) {
	text := req.Content
	if len(req.Media) > 0 {
		urls := make([]string, 0, len(req.Media))
		for _, m := range req.Media {
			urls = append(urls, m.URL)
		}
		text = strings.TrimSpace(text + " " + strings.Join(urls, " "))
	}
	if text == "" {
		return "", p.c.errorf(KindValidation, nil, "tweet text is empty")
	}

	headers := map[string]string{"Authorization": "Bearer " + req.AccessToken}
	resp, err := p.c.postJSON(ctx, "/2/tweets", headers, map[string]string{"text": text})
	if err != nil {
		return "", err
	}

	id := gjson.GetBytes(resp.Body, "data.id").String()
	if id == "" {
		return "", p.c.errorf(KindServer, nil, "no tweet ID returned from Twitter")
	}
	return id, nil
}
