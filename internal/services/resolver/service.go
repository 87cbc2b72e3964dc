package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/interfaces"
	"github.com/ternarybob/xmedia/internal/models"
)

const (
	// Endpoint and query parameters observed from the x.com web client.
	graphqlURL = "https://x.com/i/api/graphql/0hWvDhmW8YQ-S_ib3azIrw/TweetResultByRestId"

	// Public bearer token used by the x.com web client itself. Not a
	// secret; the per-account auth lives in the session cookies.
	webBearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs=1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

	// x.com rejects requests whose User-Agent does not look like a browser.
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"

	createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"
)

// Service resolves a post ID into its downloadable media items by calling
// the TweetResultByRestId GraphQL endpoint with cookies from a captured
// browser session.
type Service struct {
	client    *http.Client
	baseURL   string
	userAgent string
	logger    arbor.ILogger
}

// New creates a resolver with its own HTTP client bounded by timeout.
// If proxy is non-nil all API traffic goes through it.
func New(timeout time.Duration, proxy *models.ProxyConfig, userAgent string, logger arbor.ILogger) *Service {
	transport := &http.Transport{}
	if proxy != nil {
		proxyURL, err := url.Parse(proxy.ServerURL())
		if err == nil {
			if proxy.HasAuth() {
				proxyURL.User = url.UserPassword(proxy.Username, proxy.Password)
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Service{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		baseURL:   graphqlURL,
		userAgent: userAgent,
		logger:    logger,
	}
}

var _ interfaces.MediaResolver = (*Service)(nil)

// Resolve fetches the tweet via the GraphQL API and extracts its media
// items plus the metadata needed for filenames. Returns
// models.ErrMediaNotFound when the tweet exists but carries no media, or
// is unavailable.
func (s *Service) Resolve(ctx context.Context, session *models.Session, postID string) (*models.TweetMetadata, []models.MediaItem, error) {
	authToken := session.CookieValue("auth_token")
	csrfToken := session.CookieValue("ct0")
	if authToken == "" || csrfToken == "" {
		return nil, nil, &models.ResolveError{PostID: postID, Err: fmt.Errorf("session is missing auth_token or ct0 cookie")}
	}

	req, err := s.buildRequest(ctx, postID, authToken, csrfToken)
	if err != nil {
		return nil, nil, &models.ResolveError{PostID: postID, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, &models.ResolveError{PostID: postID, Err: fmt.Errorf("api request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Warn().
			Str("post_id", postID).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("API request returned non-200 status")
		return nil, nil, &models.ResolveError{PostID: postID, Err: fmt.Errorf("api returned status %d", resp.StatusCode)}
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, nil, &models.ResolveError{PostID: postID, Err: fmt.Errorf("decoding api response: %w", err)}
	}

	result := parsed.Data.TweetResult.Result
	if result == nil {
		s.logger.Warn().Str("post_id", postID).Msg("API response has no tweet result")
		return nil, nil, models.ErrMediaNotFound
	}
	if result.Typename == "TweetUnavailable" || result.Legacy == nil {
		s.logger.Warn().
			Str("post_id", postID).
			Str("reason", result.Reason).
			Msg("Tweet unavailable or missing legacy data")
		return nil, nil, models.ErrMediaNotFound
	}

	items := extractMedia(result.Legacy)
	if len(items) == 0 {
		s.logger.Info().Str("post_id", postID).Msg("Tweet has no media entities")
		return nil, nil, models.ErrMediaNotFound
	}

	meta := &models.TweetMetadata{
		AuthorHandle: authorHandle(result),
		PostID:       postID,
	}
	if ts, err := time.Parse(createdAtLayout, result.Legacy.CreatedAt); err == nil {
		meta.PostedAt = ts
	} else {
		s.logger.Warn().
			Str("post_id", postID).
			Str("created_at", result.Legacy.CreatedAt).
			Msg("Could not parse tweet timestamp, filenames will use zero time")
	}

	s.logger.Info().
		Str("post_id", postID).
		Str("handle", meta.AuthorHandle).
		Int("media_count", len(items)).
		Msg("Resolved tweet media")
	return meta, items, nil
}

func (s *Service) buildRequest(ctx context.Context, postID, authToken, csrfToken string) (*http.Request, error) {
	variables, _ := json.Marshal(map[string]any{
		"tweetId":                postID,
		"withCommunity":          false,
		"includePromotedContent": false,
		"withVoice":              false,
	})
	features, _ := json.Marshal(map[string]bool{
		"creator_subscriptions_tweet_preview_api_enabled":                         false,
		"tweetypie_unmention_optimization_enabled":                                true,
		"responsive_web_edit_tweet_api_enabled":                                   true,
		"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              false,
		"view_counts_everywhere_api_enabled":                                      false,
		"longform_notetweets_consumption_enabled":                                 true,
		"responsive_web_twitter_article_tweet_consumption_enabled":                false,
		"tweet_awards_web_tipping_enabled":                                        false,
		"freedom_of_speech_not_reach_fetch_enabled":                               true,
		"standardized_nudges_misinfo":                                             false,
		"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
		"longform_notetweets_rich_text_read_enabled":                              false,
		"longform_notetweets_inline_media_enabled":                                false,
		"responsive_web_graphql_exclude_directive_enabled":                        true,
		"verified_phone_label_enabled":                                            false,
		"responsive_web_media_download_video_enabled":                             false,
		"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
		"responsive_web_graphql_timeline_navigation_enabled":                      false,
		"responsive_web_enhance_cards_enabled":                                    false,
	})
	fieldToggles, _ := json.Marshal(map[string]bool{
		"withArticleRichContentState": false,
		"withAuxiliaryUserLabels":     false,
	})

	query := url.Values{}
	query.Set("variables", string(variables))
	query.Set("features", string(features))
	query.Set("fieldToggles", string(fieldToggles))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", fmt.Sprintf("auth_token=%s; ct0=%s", authToken, csrfToken))
	req.Header.Set("Authorization", "Bearer "+webBearerToken)
	req.Header.Set("X-Csrf-Token", csrfToken)
	req.Header.Set("X-Twitter-Auth-Type", "OAuth2Session")
	req.Header.Set("X-Twitter-Active-User", "yes")
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	return req, nil
}

func authorHandle(result *tweetResult) string {
	user := result.Core.UserResults.Result
	if user.Legacy.ScreenName != "" {
		return user.Legacy.ScreenName
	}
	return user.Core.ScreenName
}

// extractMedia walks the media entities of the tweet. Multi-media tweets
// carry extended_entities; single images sometimes appear only under
// entities.
func extractMedia(legacy *tweetLegacy) []models.MediaItem {
	entities := legacy.ExtendedEntities
	if entities == nil || len(entities.Media) == 0 {
		entities = legacy.Entities
	}
	if entities == nil {
		return nil
	}

	var items []models.MediaItem
	for i, media := range entities.Media {
		var item models.MediaItem
		switch media.Type {
		case "photo":
			item = models.MediaItem{URL: media.MediaURLHTTPS, Kind: models.MediaKindImage, Ext: photoExt(media.MediaURLHTTPS)}
		case "video":
			if u := bestMP4Variant(media.VideoInfo); u != "" {
				item = models.MediaItem{URL: u, Kind: models.MediaKindVideo, Ext: "mp4"}
			}
		case "animated_gif":
			if media.VideoInfo != nil && len(media.VideoInfo.Variants) > 0 {
				item = models.MediaItem{URL: media.VideoInfo.Variants[0].URL, Kind: models.MediaKindVideo, Ext: "mp4"}
			}
		}
		if item.URL == "" {
			continue
		}
		item.URL = stripQuery(item.URL)
		item.Index = i
		items = append(items, item)
	}
	return items
}

// bestMP4Variant picks the highest-bitrate video/mp4 variant. Ties keep
// the first listed.
func bestMP4Variant(info *videoInfo) string {
	if info == nil {
		return ""
	}
	best := ""
	bestBitrate := -1
	for _, v := range info.Variants {
		if v.ContentType != "video/mp4" {
			continue
		}
		if v.Bitrate > bestBitrate {
			best = v.URL
			bestBitrate = v.Bitrate
		}
	}
	return best
}

// photoExt derives the image extension from the media URL path,
// defaulting to jpg.
func photoExt(rawURL string) string {
	cleaned := stripQuery(rawURL)
	if i := strings.LastIndex(cleaned, "."); i >= 0 && i > strings.LastIndex(cleaned, "/") {
		if ext := cleaned[i+1:]; ext != "" {
			return ext
		}
	}
	return "jpg"
}

// stripQuery drops query parameters like ?tag=10 from media URLs.
func stripQuery(raw string) string {
	if i := strings.Index(raw, "?"); i >= 0 {
		return raw[:i]
	}
	return raw
}
