package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/healthwallet/shc-service/pkg/server/framework"
)

// Logger sets up per-request state and logs request info before and after
// the handler chain runs in the following format:
//
//	TraceID : started : HTTPMethod Path -> IPAddr
//	TraceID : completed : HTTPMethod Path -> IPAddr (StatusCode) (latency)
func Logger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := &framework.RequestState{
			TraceID: uuid.NewString(),
			Now:     time.Now(),
		}
		c.Set(framework.KeyRequestState.String(), state)

		r := c.Request
		log.Debugf("%s : started : %s %s -> %s", state.TraceID, r.Method, r.URL.Path, c.ClientIP())

		c.Next()

		statusCode := state.StatusCode
		if statusCode == 0 {
			statusCode = c.Writer.Status()
		}
		log.Debugf("%s : completed : %s %s -> %s (%d) (%s)",
			state.TraceID, r.Method, r.URL.Path, c.ClientIP(), statusCode, time.Since(state.Now))
	}
}
