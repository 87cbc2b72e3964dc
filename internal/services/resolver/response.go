package resolver

// Wire shapes of the TweetResultByRestId GraphQL response. Only the paths
// needed for media extraction and filename metadata are mapped.

type apiResponse struct {
	Data struct {
		TweetResult struct {
			Result *tweetResult `json:"result"`
		} `json:"tweetResult"`
	} `json:"data"`
}

type tweetResult struct {
	Typename string `json:"__typename"`
	Reason   string `json:"reason,omitempty"`
	Core     struct {
		UserResults struct {
			Result struct {
				Legacy struct {
					ScreenName string `json:"screen_name"`
				} `json:"legacy"`
				Core struct {
					ScreenName string `json:"screen_name"`
				} `json:"core"`
			} `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	Legacy *tweetLegacy `json:"legacy"`
}

type tweetLegacy struct {
	CreatedAt        string         `json:"created_at"`
	ExtendedEntities *mediaEntities `json:"extended_entities"`
	Entities         *mediaEntities `json:"entities"`
}

type mediaEntities struct {
	Media []mediaEntry `json:"media"`
}

type mediaEntry struct {
	Type          string     `json:"type"` // "photo", "video", "animated_gif"
	MediaURLHTTPS string     `json:"media_url_https"`
	VideoInfo     *videoInfo `json:"video_info"`
}

type videoInfo struct {
	Variants []videoVariant `json:"variants"`
}

type videoVariant struct {
	ContentType string `json:"content_type"`
	Bitrate     int    `json:"bitrate"`
	URL         string `json:"url"`
}
