package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/showconnect/esign/pkg/configuration"
)

type smsResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// SMSClient sends SMS through a Twilio-compatible messaging API.
type SMSClient struct {
	httpClient *resty.Client
	opts       configuration.SMSOptions
}

func NewSMSClient(opts configuration.SMSOptions) *SMSClient {
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetBasicAuth(opts.AccountSID, opts.AuthToken)

	return &SMSClient{httpClient: client, opts: opts}
}

func (c *SMSClient) Send(ctx context.Context, to, body string) error {
	var result smsResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": c.opts.FromNumber,
			"Body": body,
		}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", c.opts.AccountSID))
	if err != nil {
		return errors.Wrap(err, "sms request")
	}
	if resp.IsError() {
		return errors.Errorf("sms api status %d: %s", resp.StatusCode(), result.ErrorMessage)
	}
	if result.Status == "failed" || result.Status == "undelivered" {
		return errors.Errorf("sms delivery %s: %s", result.Status, result.ErrorMessage)
	}
	return nil
}
