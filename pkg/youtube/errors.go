package youtube

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	ErrInvalidLink      = errors.New("invalid YouTube link")
	ErrVideoNotFound    = errors.New("video not found")
	ErrCommentsDisabled = errors.New("comments are disabled for this video")
	ErrQuotaExceeded    = errors.New("YouTube API quota exceeded")
	ErrAPIKeyMissing    = errors.New("YouTube API key not configured")
)

// apiErrorClassifier reports whether a Data API error is worth retrying.
// Client errors other than rate limiting are permanent.
func apiErrorClassifier(err error) bool {
	switch {
	case errors.Is(err, ErrVideoNotFound), errors.Is(err, ErrCommentsDisabled),
		errors.Is(err, ErrInvalidLink), errors.Is(err, ErrQuotaExceeded):
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
		return true
	}
	return true
}

// mapAPIError converts the Data API's structured errors into sentinels.
func mapAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "commentsDisabled":
			return ErrCommentsDisabled
		case "videoNotFound":
			return ErrVideoNotFound
		case "quotaExceeded", "dailyLimitExceeded":
			return ErrQuotaExceeded
		}
	}
	if apiErr.Code == http.StatusNotFound {
		return ErrVideoNotFound
	}
	return err
}
