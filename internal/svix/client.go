package svix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/emberwick/storefront/internal/config"
	"github.com/emberwick/storefront/internal/logger"
	svix "github.com/svix/svix-webhooks/go"
	"github.com/svix/svix-webhooks/go/models"
)

// Client wraps the Svix SDK client and publishes order notifications to a
// single application configured for the store
type Client struct {
	client  *svix.Svix
	appID   string
	enabled bool
	logger  *logger.Logger
}

// NewClient creates a new Svix client. A disabled client accepts every call
// and sends nothing.
func NewClient(cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	if !cfg.Svix.Enabled {
		return &Client{enabled: false, logger: log}, nil
	}

	var opts *svix.SvixOptions
	if cfg.Svix.BaseURL != "" {
		serverURL, err := url.Parse(cfg.Svix.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		opts = &svix.SvixOptions{ServerUrl: serverURL}
	}

	svixClient, err := svix.New(cfg.Svix.AuthToken, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create svix client: %w", err)
	}

	return &Client{
		client:  svixClient,
		appID:   cfg.Svix.AppID,
		enabled: true,
		logger:  log,
	}, nil
}

// EnsureApplication makes sure the configured application exists, creating
// it when missing
func (c *Client) EnsureApplication(ctx context.Context) error {
	if !c.enabled || c.client == nil {
		return nil
	}

	if _, err := c.client.Application.Get(ctx, c.appID); err == nil {
		return nil
	}

	appID := c.appID
	app, err := c.client.Application.Create(ctx, models.ApplicationIn{
		Name: appID,
		Uid:  &appID,
	}, &svix.ApplicationCreateOptions{})
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	c.logger.Infow("created svix application", "app_id", app.Id)
	return nil
}

// SendMessage publishes eventType with payload. eventID lets Svix drop
// duplicates when the same order transition is published twice.
func (c *Client) SendMessage(ctx context.Context, eventType string, eventID string, payload interface{}) error {
	if !c.enabled || c.client == nil {
		return nil
	}

	payloadMap, err := toPayloadMap(payload)
	if err != nil {
		return err
	}

	msg := models.MessageIn{
		EventType: eventType,
		Payload:   payloadMap,
	}
	if eventID != "" {
		msg.EventId = &eventID
	}

	if _, err := c.client.Message.Create(ctx, c.appID, msg, &svix.MessageCreateOptions{}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func toPayloadMap(payload interface{}) (map[string]interface{}, error) {
	var payloadMap map[string]interface{}

	switch p := payload.(type) {
	case map[string]interface{}:
		return p, nil
	case json.RawMessage:
		if err := json.Unmarshal(p, &payloadMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	case []byte:
		if err := json.Unmarshal(p, &payloadMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		if err := json.Unmarshal(data, &payloadMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}
	return payloadMap, nil
}
