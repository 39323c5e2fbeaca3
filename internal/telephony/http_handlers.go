package telephony

import (
	"context"
	"errors"
	"net/http"
	"time"

	"voice-receptionist/internal/calls"
	"voice-receptionist/internal/metrics"
	"voice-receptionist/internal/routing"
	"voice-receptionist/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const contentTypeXML = "application/xml"

// InboundRouter decides how an inbound call is handled.
type InboundRouter interface {
	Route(ctx context.Context, in routing.InboundCall) (routing.Decision, error)
}

// CallCompleter applies terminal call status updates.
type CallCompleter interface {
	Complete(ctx context.Context, c calls.Completion) error
}

// WebhookHandler adapts Twilio voice webhooks to the router and writes TwiML.
// Routing decisions are made by Router, never here.
type WebhookHandler struct {
	Router  InboundRouter
	Calls   CallCompleter
	Metrics *metrics.Metrics

	// Timeout bounds the router call so the provider always gets an answer.
	Timeout time.Duration
	Now     func() time.Time
}

func (h WebhookHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// HandleInboundCall always answers 200 with a TwiML document. Failures
// become a spoken apology.
func (h WebhookHandler) HandleInboundCall(c *gin.Context) {
	log := logger.FromGin(c)
	start := time.Now()

	outcome, in := h.decide(c, log)
	h.Metrics.ObserveWebhook(outcome, time.Since(start))

	c.Data(http.StatusOK, contentTypeXML, []byte(MustRender(in)))
}

func (h WebhookHandler) decide(c *gin.Context, log *zap.Logger) (string, Instructions) {
	if h.Router == nil {
		log.Error("voice webhook has no router")
		return "error", Apology()
	}

	form, err := ParseTwilioInboundCall(c.Request)
	if err != nil {
		log.Warn("voice webhook parse failed", zap.Error(err))
		return "error", Apology()
	}
	log = log.With(zap.String("call_sid", form.CallSid))

	ctx := c.Request.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	d, err := h.Router.Route(ctx, form.ToInboundCall(h.now()))
	if err != nil {
		log.Error("inbound call routing failed", zap.String("to", form.To), zap.Error(err))
		return "error", Apology()
	}

	switch d.Outcome {
	case routing.OutcomeRouted:
		log.Info("inbound call routed",
			zap.String("tenant_id", d.CallLog.TenantID),
			zap.String("call_log_id", d.CallLog.ID),
			zap.Bool("duplicate", d.Duplicate),
		)
		return string(routing.OutcomeRouted), Bridge(d.Greeting, d.Connect)
	default:
		return string(routing.OutcomeUnrouted), Unavailable()
	}
}

// HandleProbe answers GET on the voice webhook URL so it can be checked
// from a browser or the provider console.
func (h WebhookHandler) HandleProbe(c *gin.Context) {
	c.String(http.StatusOK, "Voice webhook OK")
}

// HandleStatusCallback records the end of a call. Non-terminal statuses and
// unknown calls are acknowledged without changes.
func (h WebhookHandler) HandleStatusCallback(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseTwilioStatusCallback(c.Request)
	if err != nil {
		log.Warn("status callback parse failed", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}

	comp, final := form.Completion(h.now())
	if !final || h.Calls == nil {
		c.Status(http.StatusNoContent)
		return
	}

	err = h.Calls.Complete(c.Request.Context(), comp)
	switch {
	case errors.Is(err, calls.ErrNotFound):
		log.Info("status callback for unknown or finished call", zap.String("call_sid", form.CallSid))
	case err != nil:
		log.Error("status callback failed", zap.String("call_sid", form.CallSid), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	default:
		h.Metrics.ObserveCompletion(string(comp.Status))
	}
	c.Status(http.StatusNoContent)
}
