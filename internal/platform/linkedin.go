package platform

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
)

type LinkedInPublisher struct {
	c *client
}

func NewLinkedInPublisher(opts Options) *LinkedInPublisher {
	opts = opts.withDefaults("https://api.linkedin.com")
	return &LinkedInPublisher{c: newClient("linkedin", opts)}
}

// AuthorURN turns a stored platform user id into a LinkedIn author URN.
// Bare ids are treated as organizations.
func AuthorURN(platformUserID string) string {
	if strings.HasPrefix(platformUserID, "urn:li:") {
		return platformUserID
	}
	return "urn:li:organization:" + platformUserID
}

func (p *LinkedInPublisher) Publish(ctx context.Context, req PublishRequest) (string, error) {
	if req.PlatformUserID == "" {
		return "", p.c.errorf(KindValidation, nil, "missing author id")
	}

	shareContent := map[string]interface{}{
		"shareCommentary":    map[string]string{"text": req.Content},
		"shareMediaCategory": "NONE",
	}
	if len(req.Media) > 0 {
		media := make([]map[string]interface{}, 0, len(req.Media))
		for _, m := range req.Media {
			media = append(media, map[string]interface{}{
				"status":      "READY",
				"originalUrl": m.URL,
			})
		}
		shareContent["shareMediaCategory"] = "ARTICLE"
		shareContent["media"] = media
	}

	payload := map[string]interface{}{
		"author":         AuthorURN(req.PlatformUserID),
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	headers := map[string]string{
		"Authorization":             "Bearer " + req.AccessToken,
		"X-Restli-Protocol-Version": "2.0.0",
	}
	resp, err := p.c.postJSON(ctx, "/v2/ugcPosts", headers, payload)
	if err != nil {
		return "", err
	}

	id := resp.Header.Get("X-RestLi-Id")
	if id == "" {
		id = gjson.GetBytes(resp.Body, "id").String()
	}
	if id == "" {
		return "", p.c.errorf(KindServer, nil, "no share ID returned from LinkedIn")
	}
	return id, nil
}
