// Package sms sends text messages through Twilio.
package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the part of the Twilio messages API the client uses.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type Client struct {
	from       string
	configured bool
	api        messageCreator
}

func NewClient(accountSID, authToken, from string) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Client{
		from:       from,
		configured: accountSID != "" && authToken != "" && from != "",
		api:        rest.Api,
	}
}

// Configured returns true if credentials and a sender number are set.
func (c *Client) Configured() bool {
	return c.configured
}

// Send delivers body to the phone number to.
func (c *Client) Send(ctx context.Context, to, body string) error {
	if !c.Configured() {
		return fmt.Errorf("sms client not configured: missing credentials")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	if _, err := c.api.CreateMessage(params); err != nil {
		var apiErr *twclient.TwilioRestError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("twilio API error: status %d: code %d: %s", apiErr.Status, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("send sms: %w", err)
	}
	return nil
}
