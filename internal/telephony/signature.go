package telephony

import (
	"net/http"
	"strings"

	"voice-receptionist/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
	"go.uber.org/zap"
)

const signatureHeader = "X-Twilio-Signature"

// SignatureMiddleware rejects webhook requests whose X-Twilio-Signature does
// not match. publicBaseURL is the externally visible origin Twilio signed
// against; the request path and query are appended to it. When enabled is
// false every request passes.
func SignatureMiddleware(authToken, publicBaseURL string, enabled bool) gin.HandlerFunc {
	validator := client.NewRequestValidator(authToken)
	base := strings.TrimRight(publicBaseURL, "/")

	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}

		url := base + c.Request.URL.RequestURI()
		if !validator.Validate(url, params, c.GetHeader(signatureHeader)) {
			logger.FromGin(c).Warn("twilio signature rejected", zap.String("url", url))
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
