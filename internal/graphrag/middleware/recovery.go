package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/pkg/utils/errors"
	"github.com/kart-io/graphrag/pkg/utils/response"
	"github.com/kart-io/graphrag/pkg/utils/validator"
)

// Recovery converts a handler panic into a 500 ErrPanic response.
// If the response has already started (an SSE stream) the connection is
// left as is and only the log entry is written.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}

			logger.Errorw("panic recovered",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", RequestIDFrom(c),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			e := errors.ErrPanic.WithMessage(fmt.Sprintf("panic: %v", r))
			lang := validator.LangFromAcceptLanguage(c.GetHeader("Accept-Language"))
			c.AbortWithStatusJSON(e.HTTPStatus(), response.Err(e, lang).WithRequestID(RequestIDFrom(c)))
		}()
		c.Next()
	}
}
