package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MediaKind classifies a resolved attachment
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// MediaItem is one resolved, downloadable attachment belonging to a post.
// Index is 0-based and follows the platform's own attachment ordering; it
// is the sole sort key for output filenames. For videos the URL is the
// highest-bitrate MP4 rendition.
type MediaItem struct {
	URL   string    `json:"url"`
	Kind  MediaKind `json:"kind"`
	Index int       `json:"index"`
	Ext   string    `json:"ext"`
}

// TweetMetadata carries the post fields needed to build output filenames.
type TweetMetadata struct {
	AuthorHandle string    `json:"author_handle"`
	PostID       string    `json:"post_id"`
	PostedAt     time.Time `json:"posted_at"`
}

var handleCleaner = regexp.MustCompile(`[^a-z0-9_]+`)

// cleanHandle lowercases the author handle and collapses anything outside
// [a-z0-9_] so filenames stay filesystem-safe.
func cleanHandle(handle string) string {
	h := strings.ToLower(strings.TrimPrefix(handle, "@"))
	h = handleCleaner.ReplaceAllString(h, "_")
	h = strings.Trim(h, "_")
	if h == "" {
		return "unknown_user"
	}
	return h
}

// Filename builds the output name for one media item:
// <YYYYMMDD_HHMMSS>_<handle>_<postId>_<index+1>.<ext>
func (m *TweetMetadata) Filename(item MediaItem) string {
	return fmt.Sprintf("%s_%s_%s_%d.%s",
		m.PostedAt.Format("20060102_150405"),
		cleanHandle(m.AuthorHandle),
		m.PostID,
		item.Index+1,
		item.Ext,
	)
}
