// Package whatsapp is the transport for the WhatsApp Cloud (Graph) API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"whatsapp-core/internal/config"
)

// TransportError is a non-success response from the Graph API. It carries the
// status code and raw response body for the retry layer to log.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider API error: status %d - %s", e.Status, e.Body)
}

type Client struct {
	Config *config.Config
	HTTP   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		Config: cfg,
		HTTP:   &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Message Structures ---

type GenericMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	Text             *TextObj     `json:"text,omitempty"`
	Template         *TemplateObj `json:"template,omitempty"`
}

type TextObj struct {
	Body       string `json:"body"`
	PreviewUrl bool   `json:"preview_url,omitempty"`
}

type TemplateObj struct {
	Name       string         `json:"name"`
	Language   LanguageObj    `json:"language"`
	Components []ComponentObj `json:"components,omitempty"`
}

type LanguageObj struct {
	Code string `json:"code"`
}

type ComponentObj struct {
	Type       string         `json:"type"`
	Parameters []ParameterObj `json:"parameters"`
}

type ParameterObj struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// SendResponse is the subset of the Graph API reply we care about.
type SendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.Config.WhatsAppToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, &TransportError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("https://graph.facebook.com/%s/%s/messages", c.Config.APIVersion, c.Config.PhoneNumberID)
}

// --- Messaging Methods ---

// SendRaw posts one message and returns the provider-assigned message id with
// the raw response body.
func (c *Client) SendRaw(ctx context.Context, msg GenericMessage) (string, []byte, error) {
	raw, err := c.sendRequest(ctx, "POST", c.messagesURL(), msg)
	if err != nil {
		return "", raw, err
	}

	var parsed SendResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", raw, fmt.Errorf("parse provider response: %w", err)
	}
	if len(parsed.Messages) == 0 {
		return "", raw, fmt.Errorf("provider response missing message id")
	}
	return parsed.Messages[0].ID, raw, nil
}

func (c *Client) SendText(ctx context.Context, to, body string) (string, []byte, error) {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text: &TextObj{
			Body: body,
		},
	}
	return c.SendRaw(ctx, msg)
}

func (c *Client) SendTemplate(ctx context.Context, to, templateName, languageCode string, variables []string) (string, []byte, error) {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: &TemplateObj{
			Name: templateName,
			Language: LanguageObj{
				Code: languageCode,
			},
		},
	}
	if len(variables) > 0 {
		params := make([]ParameterObj, 0, len(variables))
		for _, v := range variables {
			params = append(params, ParameterObj{Type: "text", Text: v})
		}
		msg.Template.Components = []ComponentObj{{Type: "body", Parameters: params}}
	}
	return c.SendRaw(ctx, msg)
}
