package api

import (
	"net/http"

	"pos-service/internal/apperror"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict, apperror.KindReferentialIntegrity:
		return http.StatusConflict
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) (int, gin.H) {
	appErr, ok := apperror.As(err)
	if !ok {
		return http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  "INTERNAL",
		}
	}

	body := gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	}
	if appErr.Available != nil {
		body["available"] = *appErr.Available
	}
	return statusFor(appErr.Kind), body
}

// writeError renders a service error. Unknown errors are logged and hidden.
func writeError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		util.GetLogger().Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDHeader)),
			zap.Error(err))
	}
	c.JSON(status, body)
}

func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"code":    apperror.ErrInvalidInput.Code,
		"details": err.Error(),
	})
}
