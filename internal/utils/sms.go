package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const defaultSMSAPIURL = "https://api.mobizon.kz/service/message/sendsmsmessage"

// SMSClient dispatches one-time codes through the SMS gateway.
// With DryRun (or an empty API key) nothing leaves the process,
// the message is only logged — handy for local runs and tests.
type SMSClient struct {
	APIKey string
	Sender string // optional sender ID
	DryRun bool
	APIURL string

	HTTPClient *http.Client
}

type smsResponse struct {
	Code int `json:"code"`
	Data struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

func NewSMSClient(apiKey, sender string, dryRun bool) *SMSClient {
	return &SMSClient{
		APIKey:     apiKey,
		Sender:     sender,
		DryRun:     dryRun,
		APIURL:     defaultSMSAPIURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers text to the given phone number.
func (c *SMSClient) Send(to, text string) error {
	if c.DryRun || c.APIKey == "" {
		log.Printf("[sms][dry-run] to=%s sender=%q text=%q", to, c.Sender, text)
		return nil
	}

	form := url.Values{
		"apiKey":    {c.APIKey},
		"recipient": {to},
		"text":      {text},
	}
	if c.Sender != "" {
		form.Set("from", c.Sender)
	}

	resp, err := c.HTTPClient.PostForm(c.APIURL, form)
	if err != nil {
		return fmt.Errorf("send SMS request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var result smsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parse SMS response: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("sms gateway returned error code: %d", result.Code)
	}
	log.Printf("[sms][send] ok: to=%s messageID=%s", to, result.Data.MessageID)
	return nil
}
