package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
)

type JSONResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

func ResponseWithSuccess(
	c *gin.Context,
	statusCode int,
	message string,
	data interface{},
) {
	c.JSON(statusCode, JSONResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ResponseWithError(
	c *gin.Context,
	statusCode int,
	message string,
	errorDetails interface{},
) {
	c.JSON(statusCode, JSONResponse{
		Success: false,
		Message: message,
		Error:   errorDetails,
	})
}

// ResponseWithAppError writes err using its apperr classification. Internal
// errors get a generic message; their cause is only logged.
func ResponseWithAppError(c *gin.Context, err error) {
	status := apperr.StatusCode(err)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind == apperr.KindInternal {
		log.Errorf("%s %s: internal error: %v", c.Request.Method, c.FullPath(), err)
		ResponseWithError(c, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	if status >= http.StatusInternalServerError {
		log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		log.Debugf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, JSONResponse{
		Success: false,
		Message: appErr.Message,
		Code:    appErr.Code,
		Error:   appErr.Details,
	})
}
