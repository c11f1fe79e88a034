// Package youtube wraps the external video platform API behind the quota
// counter and circuit breaker. Every page fetch reserves its quota cost
// before any network traffic happens.
package youtube

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/fieldshow/bandcatalog/internal/metrics"
	"github.com/fieldshow/bandcatalog/internal/service/breaker"
	"github.com/fieldshow/bandcatalog/internal/service/quota"
)

// Quota costs per call, in API cost units. Search is two orders of
// magnitude more expensive than a plain list, which is why incremental
// syncs matter.
const (
	CostSearchPage = 100
	CostVideosList = 1
)

// Video is the platform-neutral metadata for one fetched video.
type Video struct {
	VideoID         string
	Title           string
	Description     string
	ChannelID       string
	ChannelTitle    string
	ThumbnailURL    string
	DurationSeconds int
	PublishedAt     time.Time
	ViewCount       int64
	LikeCount       int64
}

// Page is one page of listing results plus the cost actually charged.
type Page struct {
	Videos        []*Video
	NextPageToken string
	QuotaCost     int
}

// Client wraps the YouTube Data API v3 client.
type Client struct {
	service  *yt.Service
	quota    *quota.Counter
	breaker  *breaker.Breaker
	pageSize int64
	timeout  time.Duration
}

// NewClient creates an API client guarded by the given quota counter and
// circuit breaker.
func NewClient(apiKey string, q *quota.Counter, b *breaker.Breaker, pageSize int64, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if pageSize <= 0 || pageSize > 50 {
		pageSize = 50
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	service, err := yt.NewService(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{
		service:  service,
		quota:    q,
		breaker:  b,
		pageSize: pageSize,
		timeout:  timeout,
	}, nil
}

// ListChannelVideos fetches one page of videos uploaded to a channel,
// optionally restricted to those published after the cursor.
func (c *Client) ListChannelVideos(ctx context.Context, channelID string, publishedAfter *time.Time, pageToken string) (*Page, error) {
	return c.searchPage(ctx, "search_by_channel", func(call *yt.SearchListCall) *yt.SearchListCall {
		return call.ChannelId(channelID)
	}, publishedAfter, pageToken)
}

// SearchVideos fetches one page of videos matching a free-text query,
// optionally restricted to those published after the cursor. Used for bands
// without a known channel.
func (c *Client) SearchVideos(ctx context.Context, query string, publishedAfter *time.Time, pageToken string) (*Page, error) {
	return c.searchPage(ctx, "search_by_query", func(call *yt.SearchListCall) *yt.SearchListCall {
		return call.Q(query)
	}, publishedAfter, pageToken)
}

func (c *Client) searchPage(ctx context.Context, endpoint string, scope func(*yt.SearchListCall) *yt.SearchListCall, publishedAfter *time.Time, pageToken string) (*Page, error) {
	result, err := c.call(ctx, endpoint, CostSearchPage, func(callCtx context.Context) (any, error) {
		call := c.service.Search.List([]string{"snippet"}).
			Type("video").
			Order("date").
			MaxResults(c.pageSize).
			Context(callCtx)
		call = scope(call)
		if publishedAfter != nil {
			call = call.PublishedAfter(publishedAfter.Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		return call.Do()
	})
	if err != nil {
		return nil, err
	}

	response := result.(*yt.SearchListResponse)

	page := &Page{
		NextPageToken: response.NextPageToken,
		QuotaCost:     CostSearchPage,
	}

	ids := make([]string, 0, len(response.Items))
	byID := make(map[string]*Video, len(response.Items))
	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		video := mapSearchResult(item)
		page.Videos = append(page.Videos, video)
		ids = append(ids, video.VideoID)
		byID[video.VideoID] = video
	}

	if len(ids) > 0 {
		cost, err := c.fillDetails(ctx, ids, byID)
		page.QuotaCost += cost
		if err != nil {
			return nil, err
		}
	}

	return page, nil
}

// fillDetails fetches duration and engagement counters for one page worth
// of video IDs in a single batch call.
func (c *Client) fillDetails(ctx context.Context, ids []string, byID map[string]*Video) (int, error) {
	result, err := c.call(ctx, "videos_list", CostVideosList, func(callCtx context.Context) (any, error) {
		return c.service.Videos.
			List([]string{"contentDetails", "statistics"}).
			Id(ids...).
			Context(callCtx).
			Do()
	})
	if err != nil {
		return 0, err
	}

	response := result.(*yt.VideoListResponse)
	for _, item := range response.Items {
		video, ok := byID[item.Id]
		if !ok {
			continue
		}
		if item.ContentDetails != nil {
			if seconds, err := ParseVideoDuration(item.ContentDetails.Duration); err == nil {
				video.DurationSeconds = seconds
			}
		}
		if item.Statistics != nil {
			video.ViewCount = int64(item.Statistics.ViewCount)
			video.LikeCount = int64(item.Statistics.LikeCount)
		}
	}

	return CostVideosList, nil
}

// call runs one API call through quota reservation, the circuit breaker and
// the per-call timeout, recording observability counters along the way.
func (c *Client) call(ctx context.Context, endpoint string, cost int, fn func(context.Context) (any, error)) (any, error) {
	if err := c.quota.Reserve(cost); err != nil {
		metrics.APICallsTotal.WithLabelValues(endpoint, "rejected").Inc()
		return nil, err
	}

	metrics.APIInFlight.WithLabelValues(endpoint).Inc()
	defer metrics.APIInFlight.WithLabelValues(endpoint).Dec()

	result, err := c.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		res, err := fn(callCtx)
		return res, classify(err)
	})

	switch {
	case err == nil:
		metrics.APICallsTotal.WithLabelValues(endpoint, "success").Inc()
	case IsTerminal(err):
		metrics.APICallsTotal.WithLabelValues(endpoint, "terminal").Inc()
	default:
		metrics.APICallsTotal.WithLabelValues(endpoint, "transient").Inc()
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return result, nil
}

func mapSearchResult(item *yt.SearchResult) *Video {
	video := &Video{
		VideoID:      item.Id.VideoId,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		ChannelID:    item.Snippet.ChannelId,
		ChannelTitle: item.Snippet.ChannelTitle,
	}

	if item.Snippet.Thumbnails != nil {
		switch {
		case item.Snippet.Thumbnails.High != nil:
			video.ThumbnailURL = item.Snippet.Thumbnails.High.Url
		case item.Snippet.Thumbnails.Medium != nil:
			video.ThumbnailURL = item.Snippet.Thumbnails.Medium.Url
		case item.Snippet.Thumbnails.Default != nil:
			video.ThumbnailURL = item.Snippet.Thumbnails.Default.Url
		}
	}

	if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
		video.PublishedAt = t
	}

	return video
}

// ParseVideoDuration converts an ISO 8601 duration to seconds.
// Example: "PT4M13S" -> 253 seconds
func ParseVideoDuration(duration string) (int, error) {
	if !strings.HasPrefix(duration, "PT") {
		return 0, fmt.Errorf("invalid duration format: %s", duration)
	}

	duration = strings.TrimPrefix(duration, "PT")

	var hours, minutes, seconds int

	if hIdx := strings.Index(duration, "H"); hIdx != -1 {
		h, err := strconv.Atoi(duration[:hIdx])
		if err != nil {
			return 0, err
		}
		hours = h
		duration = duration[hIdx+1:]
	}

	if mIdx := strings.Index(duration, "M"); mIdx != -1 {
		m, err := strconv.Atoi(duration[:mIdx])
		if err != nil {
			return 0, err
		}
		minutes = m
		duration = duration[mIdx+1:]
	}

	if sIdx := strings.Index(duration, "S"); sIdx != -1 {
		s, err := strconv.Atoi(duration[:sIdx])
		if err != nil {
			return 0, err
		}
		seconds = s
	}

	return hours*3600 + minutes*60 + seconds, nil
}
