package security

import (
	"strings"

	"FeedNotify/middleware"
	errs "FeedNotify/tools/errs"
	jwtsec "FeedNotify/tools/security"

	"github.com/gin-gonic/gin"
)

// CtxSubjectKey holds the verified token subject.
const CtxSubjectKey = "auth.subject"

type Options struct {
	JWT jwtsec.Options
	// HeaderToken is read before Authorization: Bearer.
	HeaderToken string
}

// Middleware rejects requests without a valid bearer token.
func Middleware(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if opts.HeaderToken != "" {
			token = strings.TrimSpace(c.GetHeader(opts.HeaderToken))
		}
		// 兼容 Authorization: Bearer xxx
		if token == "" {
			if authz := strings.TrimSpace(c.GetHeader("Authorization")); len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
				token = strings.TrimSpace(authz[7:])
			}
		}
		if token == "" {
			middleware.AbortWithError(c, errs.ErrAuth.WrapMsg("missing bearer token"))
			return
		}
		sub, err := jwtsec.Verify(opts.JWT, token)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.Set(CtxSubjectKey, sub)
		c.Next()
	}
}
