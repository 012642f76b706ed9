package middleware

import (
	"net/http"

	errs "FeedNotify/tools/errs"

	"github.com/gin-gonic/gin"
)

// StatusOf maps an error code to an HTTP status. Codes are chosen from the
// HTTP range; anything else is a 500.
func StatusOf(code int) int {
	switch code {
	case errs.ValidationError:
		return http.StatusBadRequest
	case errs.UnauthorizedError:
		return http.StatusUnauthorized
	case errs.NotFoundError:
		return http.StatusNotFound
	case errs.StoreError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes {code, msg, detail} and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	ce := errs.Unpack(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusOf(ce.Code), ce)
}
