package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hearsay-labs/hearsay/internal/api/middleware"
	"github.com/hearsay-labs/hearsay/internal/query"
	"github.com/hearsay-labs/hearsay/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// QueryService is the retrieval-side core consumed by both the websocket and
// REST handlers.
type QueryService interface {
	Query(ctx context.Context, userID, question string) (*query.Response, error)
	DeleteAll(ctx context.Context, userID string) (string, error)
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

func requireUserID(c *gin.Context) (string, bool) {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}

// trustFrameUserID reports whether a userId carried inside a websocket frame
// may override the connection identity. Only allowed when the connection is
// not token-authenticated.
func trustFrameUserID(c *gin.Context) bool {
	v, _ := c.Get("user_id_source")
	s, _ := v.(string)
	return s != middleware.SourceJWT
}
