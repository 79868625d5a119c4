package webhooks

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/showconnect/esign/modules/esign/domain/aggregates/signrequest"
	"github.com/showconnect/esign/pkg/metrics"
)

const (
	EventCompleted = "signature.completed"
	EventExpired   = "signature.expired"
	EventCancelled = "signature.cancelled"
	EventDeclined  = "signature.declined"
)

// Payload is the JSON body POSTed to the caller's callback URL.
type Payload struct {
	Event         string `json:"event"`
	RequestID     string `json:"requestId"`
	ReferenceCode string `json:"referenceCode"`
	ExternalRef   string `json:"externalRef,omitempty"`
	ExternalType  string `json:"externalType,omitempty"`
	Jurisdiction  string `json:"jurisdiction,omitempty"`
	SignerName    string `json:"signerName"`
	SignedAt      string `json:"signedAt,omitempty"`
	SignatureType string `json:"signatureType,omitempty"`
	DeclineReason string `json:"declineReason,omitempty"`
}

// Dispatcher delivers lifecycle events to callback URLs. Delivery is best
// effort: failures are logged and counted, never surfaced to the signer flow.
type Dispatcher struct {
	httpClient *resty.Client
	log        *logrus.Logger
}

func NewDispatcher(log *logrus.Logger) *Dispatcher {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &Dispatcher{httpClient: client, log: log}
}

// Dispatch sends the event for req to its callback URL, if it has one.
func (d *Dispatcher) Dispatch(ctx context.Context, event string, req *signrequest.Request, extra func(*Payload)) {
	if req.CallbackURL == "" {
		return
	}
	if err := ValidateCallbackURL(req.CallbackURL); err != nil {
		d.log.WithError(err).
			WithField("reference_code", req.ReferenceCode).
			Warn("webhook target rejected")
		metrics.WebhooksDispatched.WithLabelValues("rejected").Inc()
		return
	}

	payload := Payload{
		Event:         event,
		RequestID:     req.ID.String(),
		ReferenceCode: req.ReferenceCode,
		ExternalRef:   req.ExternalRef,
		ExternalType:  req.ExternalType,
		Jurisdiction:  req.Jurisdiction,
		SignerName:    req.SignerName,
	}
	if extra != nil {
		extra(&payload)
	}

	resp, err := d.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Signature-Event", event).
		SetBody(payload).
		Post(req.CallbackURL)
	if err != nil {
		d.log.WithError(err).
			WithFields(logrus.Fields{
				"event":          event,
				"reference_code": req.ReferenceCode,
			}).
			Error("webhook delivery failed")
		metrics.WebhooksDispatched.WithLabelValues("error").Inc()
		return
	}
	if resp.IsError() {
		d.log.WithFields(logrus.Fields{
			"event":          event,
			"reference_code": req.ReferenceCode,
			"status_code":    resp.StatusCode(),
		}).Error("webhook endpoint returned error")
		metrics.WebhooksDispatched.WithLabelValues("error").Inc()
		return
	}
	metrics.WebhooksDispatched.WithLabelValues("ok").Inc()
}
