package middleware

import (
	"os"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/healthwallet/shc-service/pkg/server/framework"
)

// Errors handles errors coming out of the call stack. It detects safe application
// errors (aka SafeError) that are used to respond to the requester in a
// normalized way; a shutdown-worthy error triggers a graceful shutdown.
func Errors(shutdown chan os.Signal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ginErrors := c.Errors.ByType(gin.ErrorTypeAny)
		if len(ginErrors) == 0 {
			return
		}

		// check if there's a shutdown-worthy error
		for _, e := range ginErrors {
			if framework.IsShutdown(e.Err) {
				logrus.WithError(e.Err).Error("unsafe error, signaling shutdown")
				shutdown <- syscall.SIGTERM
				return
			}
		}

		// otherwise just log the errors and return to the caller
		logrus.Errorf("request errors: %v", ginErrors)
		if !c.Writer.Written() {
			framework.RespondError(c, ginErrors[0].Err)
		}
	}
}
