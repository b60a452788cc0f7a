package scrape

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// maxWalkDepth bounds the media-URL search so malformed or deeply nested
// payloads cannot recurse unboundedly.
const maxWalkDepth = 10

var (
	reStructuredData = regexp.MustCompile(`(?s)<script[^>]+type="application/ld\+json"[^>]*>(.*?)</script>`)
	reMarkerAttr     = regexp.MustCompile(`data-vs-([a-z-]+)="([^"]*)"`)
	reMediaExt       = regexp.MustCompile(`\.(?:mp4|m3u8|webm)(?:\?|$)`)
)

// videoDetail holds fields extracted from a watch-page document.
type videoDetail struct {
	Title        string
	Description  string
	ThumbnailURL string
	DurationSecs float64
	MediaURL     string
	AuthorName   string
	Raw          json.RawMessage
}

// extractDetail pulls structured metadata out of a watch-page document.
// Primary source is the embedded structured-data block; when that block is
// absent or fails to parse, inline marker attributes are used instead.
func extractDetail(doc []byte) (*videoDetail, error) {
	if d, err := extractStructuredData(doc); err == nil {
		return d, nil
	}
	return extractMarkerAttrs(doc)
}

func extractStructuredData(doc []byte) (*videoDetail, error) {
	m := reStructuredData.FindSubmatch(doc)
	if m == nil {
		return nil, fmt.Errorf("%w: no structured data block", ErrBadPayload)
	}
	raw := []byte(html.UnescapeString(string(m[1])))

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	d := &videoDetail{Raw: raw}
	d.Title = stringField(data, "name")
	d.Description = stringField(data, "description")
	d.ThumbnailURL = stringField(data, "thumbnailUrl")
	d.MediaURL = stringField(data, "contentUrl")
	if d.MediaURL == "" {
		d.MediaURL = findMediaURL(data, 0)
	}
	if dur, ok := data["duration"].(float64); ok {
		d.DurationSecs = dur
	}
	if author, ok := data["author"].(map[string]any); ok {
		d.AuthorName = stringField(author, "name")
	}
	return d, nil
}

func extractMarkerAttrs(doc []byte) (*videoDetail, error) {
	matches := reMarkerAttr.FindAllSubmatch(doc, -1)
	if matches == nil {
		return nil, fmt.Errorf("%w: no marker attributes", ErrBadPayload)
	}

	attrs := make(map[string]string, len(matches))
	for _, m := range matches {
		attrs[string(m[1])] = html.UnescapeString(string(m[2]))
	}

	d := &videoDetail{
		Title:        attrs["title"],
		Description:  attrs["description"],
		ThumbnailURL: attrs["thumbnail"],
		MediaURL:     attrs["media-url"],
		AuthorName:   attrs["author"],
	}
	if v := attrs["duration"]; v != "" {
		fmt.Sscanf(v, "%f", &d.DurationSecs)
	}
	return d, nil
}

// findMediaURL walks a decoded JSON value looking for a string that points
// at a playable media asset. Depth is bounded to guarantee termination on
// malformed input.
func findMediaURL(v any, depth int) string {
	if depth > maxWalkDepth {
		return ""
	}
	switch val := v.(type) {
	case string:
		if isMediaURL(val) {
			return val
		}
	case map[string]any:
		for _, child := range val {
			if found := findMediaURL(child, depth+1); found != "" {
				return found
			}
		}
	case []any:
		for _, child := range val {
			if found := findMediaURL(child, depth+1); found != "" {
				return found
			}
		}
	}
	return ""
}

func isMediaURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	return reMediaExt.MatchString(s)
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
