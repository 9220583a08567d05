// Package youtubetest provides an in-memory youtube.Source for tests.
package youtubetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/sentivibe/sentivibe-api/pkg/youtube"
)

type Video struct {
	Meta     youtube.VideoMetadata
	Comments []youtube.Comment
	// Err is returned by both fetches when set.
	Err error
}

// Fake serves Videos by ID and counts fetches.
type Fake struct {
	mu             sync.Mutex
	Videos         map[string]*Video
	MetadataCalls  int
	CommentFetches int
}

func New() *Fake {
	return &Fake{Videos: map[string]*Video{}}
}

// Add registers a video with n generated comments.
func (f *Fake) Add(id string, n int) *Video {
	v := &Video{Meta: youtube.VideoMetadata{ID: id, Title: "Video " + id, ChannelTitle: "Channel " + id}}
	for i := 0; i < n; i++ {
		v.Comments = append(v.Comments, youtube.Comment{
			Author: fmt.Sprintf("viewer%d", i),
			Text:   fmt.Sprintf("Great video number %d, really enjoyed it", i),
		})
	}
	f.mu.Lock()
	f.Videos[id] = v
	f.mu.Unlock()
	return v
}

func (f *Fake) FetchMetadata(ctx context.Context, videoID string) (*youtube.VideoMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MetadataCalls++
	v, ok := f.Videos[videoID]
	if !ok {
		return nil, youtube.ErrVideoNotFound
	}
	if v.Err != nil {
		return nil, v.Err
	}
	meta := v.Meta
	return &meta, nil
}

func (f *Fake) FetchComments(ctx context.Context, videoID string, max int) ([]youtube.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CommentFetches++
	v, ok := f.Videos[videoID]
	if !ok {
		return nil, youtube.ErrVideoNotFound
	}
	if v.Err != nil {
		return nil, v.Err
	}
	comments := v.Comments
	if max > 0 && len(comments) > max {
		comments = comments[:max]
	}
	return append([]youtube.Comment(nil), comments...), nil
}

func (f *Fake) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CommentFetches
}
