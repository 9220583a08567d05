// Package youtube fetches video metadata and top-level comments from the
// YouTube Data API v3.
package youtube

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/sentivibe/sentivibe-api/pkg/metrics"
	"github.com/sentivibe/sentivibe-api/pkg/retry"
)

// DefaultMaxComments caps how many comments one analysis reads.
const DefaultMaxComments = 500

type VideoMetadata struct {
	ID           string
	Title        string
	Description  string
	ThumbnailURL string
	Tags         []string
	ChannelTitle string
	PublishedAt  time.Time
	ViewCount    uint64
	LikeCount    uint64
	CommentCount uint64
}

type Comment struct {
	Author      string
	Text        string
	LikeCount   int64
	PublishedAt string
}

// Source is what the analysis pipeline needs from YouTube.
type Source interface {
	FetchMetadata(ctx context.Context, videoID string) (*VideoMetadata, error)
	FetchComments(ctx context.Context, videoID string, max int) ([]Comment, error)
}

type Client struct {
	service     *youtube.Service
	limiter     *rate.Limiter
	RetryConfig retry.Config
}

// NewClient creates a Data API client authenticated with an API key. rps
// bounds outbound calls per second across all requests.
func NewClient(ctx context.Context, apiKey string, rps float64, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	if rps <= 0 {
		rps = 5
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &Client{
		service:     service,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		RetryConfig: retry.DefaultConfig(),
	}, nil
}

// call runs fn behind the rate limiter with retries, recording the outcome.
func (c *Client) call(ctx context.Context, endpoint string, fn func(context.Context) error) error {
	err := retry.Do(ctx, c.RetryConfig, apiErrorClassifier, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return mapAPIError(fn(ctx))
	})
	metrics.YouTubeCalls.WithLabelValues(endpoint, metrics.Outcome(err)).Inc()
	return err
}

// FetchMetadata returns the snippet and statistics of a video.
func (c *Client) FetchMetadata(ctx context.Context, videoID string) (*VideoMetadata, error) {
	var meta *VideoMetadata

	err := c.call(ctx, "videos.list", func(ctx context.Context) error {
		resp, err := c.service.Videos.List([]string{"snippet", "statistics"}).
			Id(videoID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return ErrVideoNotFound
		}

		item := resp.Items[0]
		meta = &VideoMetadata{ID: item.Id}
		if item.Snippet != nil {
			meta.Title = item.Snippet.Title
			meta.Description = item.Snippet.Description
			meta.Tags = item.Snippet.Tags
			meta.ChannelTitle = item.Snippet.ChannelTitle
			meta.ThumbnailURL = bestThumbnail(item.Snippet.Thumbnails)
			if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
				meta.PublishedAt = t
			}
		}
		if item.Statistics != nil {
			meta.ViewCount = item.Statistics.ViewCount
			meta.LikeCount = item.Statistics.LikeCount
			meta.CommentCount = item.Statistics.CommentCount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// FetchComments pages through top-level comment threads ordered by relevance
// until max comments are collected or the video runs out.
func (c *Client) FetchComments(ctx context.Context, videoID string, max int) ([]Comment, error) {
	if max <= 0 {
		max = DefaultMaxComments
	}

	var comments []Comment
	pageToken := ""
	for len(comments) < max {
		pageSize := int64(max - len(comments))
		if pageSize > 100 {
			pageSize = 100
		}

		var next string
		err := c.call(ctx, "commentThreads.list", func(ctx context.Context) error {
			call := c.service.CommentThreads.List([]string{"snippet"}).
				VideoId(videoID).
				Order("relevance").
				TextFormat("plainText").
				MaxResults(pageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			resp, err := call.Do()
			if err != nil {
				return err
			}
			for _, thread := range resp.Items {
				if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil || thread.Snippet.TopLevelComment.Snippet == nil {
					continue
				}
				s := thread.Snippet.TopLevelComment.Snippet
				comments = append(comments, Comment{
					Author:      s.AuthorDisplayName,
					Text:        s.TextDisplay,
					LikeCount:   s.LikeCount,
					PublishedAt: s.PublishedAt,
				})
			}
			next = resp.NextPageToken
			return nil
		})
		if err != nil {
			return nil, err
		}

		if next == "" {
			break
		}
		pageToken = next
	}

	if len(comments) > max {
		comments = comments[:max]
	}
	log.Debugf("YouTube: fetched %d comments for video %s", len(comments), videoID)
	return comments, nil
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
