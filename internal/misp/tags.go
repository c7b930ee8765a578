package misp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const localOnlySuffix = "/local:1"

// AddEventTag attaches tagID to eventID. With localOnly the association is
// not synchronised to other MISP instances.
func (c *Client) AddEventTag(ctx context.Context, eventID, tagID int, localOnly bool) *Result {
	return c.post(ctx, addTagPath(eventID, tagID, localOnly), nil)
}

func addTagPath(eventID, tagID int, localOnly bool) string {
	path := fmt.Sprintf("/events/addTag/%d/%d", eventID, tagID)
	if localOnly {
		path += localOnlySuffix
	}
	return path
}

// SearchTags looks up tags whose name matches tag.
func (c *Client) SearchTags(ctx context.Context, tag string) *Result {
	return c.Invoke(ctx, http.MethodGet, "/tags/search/"+url.PathEscape(tag), nil)
}

// DecodeTags reads the tag list returned by SearchTags. MISP wraps each
// entry as {"Tag": {...}}; flat entries are accepted too.
func DecodeTags(res *Result) ([]TagSummary, error) {
	var raw []struct {
		Tag *TagSummary `json:"Tag"`
		TagSummary
	}
	if err := res.Decode(&raw); err != nil {
		return nil, err
	}
	tags := make([]TagSummary, 0, len(raw))
	for _, r := range raw {
		if r.Tag != nil {
			tags = append(tags, *r.Tag)
			continue
		}
		tags = append(tags, r.TagSummary)
	}
	return tags, nil
}
