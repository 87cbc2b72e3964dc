package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/xmedia/internal/interfaces"
	"github.com/ternarybob/xmedia/internal/models"
)

const mediaKeyPrefix = "media/"

// Service downloads resolved media items and stores the bytes in the
// object store. Items are fetched independently; a failed item is
// recorded in its result and never aborts the rest of the batch.
type Service struct {
	client    *http.Client
	store     interfaces.ObjectStore
	limiter   *rate.Limiter
	userAgent string
	logger    arbor.ILogger
}

// New creates a downloader. pace spaces successive requests to avoid
// hammering the media CDN; zero disables pacing.
func New(store interfaces.ObjectStore, timeout, pace time.Duration, proxy *models.ProxyConfig, userAgent string, logger arbor.ILogger) *Service {
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
	limiter := rate.NewLimiter(rate.Inf, 1)
	if pace > 0 {
		limiter = rate.NewLimiter(rate.Every(pace), 1)
	}
	return &Service{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		store:     store,
		limiter:   limiter,
		userAgent: userAgent,
		logger:    logger,
	}
}

var _ interfaces.MediaDownloader = (*Service)(nil)

// Fetch downloads every item and returns one result per item, in input
// order.
func (s *Service) Fetch(ctx context.Context, meta *models.TweetMetadata, items []models.MediaItem) []interfaces.DownloadResult {
	results := make([]interfaces.DownloadResult, 0, len(items))
	for _, item := range items {
		result := interfaces.DownloadResult{Item: item}
		if err := s.limiter.Wait(ctx); err != nil {
			result.Err = err
			results = append(results, result)
			continue
		}

		key := mediaKeyPrefix + meta.Filename(item)
		if err := s.fetchOne(ctx, item.URL, key); err != nil {
			s.logger.Warn().
				Err(err).
				Str("url", item.URL).
				Str("post_id", meta.PostID).
				Int("index", item.Index).
				Msg("Media download failed")
			result.Err = err
		} else {
			s.logger.Info().
				Str("key", key).
				Str("post_id", meta.PostID).
				Msg("Media saved")
			result.Key = key
		}
		results = append(results, result)
	}
	return results
}

// fetchOne downloads a single URL into the store, retrying once on a
// transient failure.
func (s *Service) fetchOne(ctx context.Context, rawURL, key string) error {
	data, err := s.download(ctx, rawURL)
	if err != nil && isTransient(err) {
		s.logger.Debug().Err(err).Str("url", rawURL).Msg("Transient download error, retrying once")
		data, err = s.download(ctx, rawURL)
	}
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

func (s *Service) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty response body")
	}
	return data, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// isTransient reports whether a download error is worth one retry:
// timeouts, connection resets and 5xx responses. Client errors (4xx)
// are permanent.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET)
}
