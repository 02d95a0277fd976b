// Package anthropic is a thin wrapper over anthropic-sdk-go exposing the
// single Messages call the audit analyst needs.
package anthropic

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/aidiscovery-cli/internal/resilience"
)

// statusOverloaded is Anthropic's "overloaded_error" status.
const statusOverloaded = 529

// Client sends prompts to Claude.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

type sdkClient struct {
	api sdk.Client
}

// NewClient returns a Client authenticated with apiKey. Extra options are
// passed to the SDK, e.g. option.WithBaseURL in tests.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &sdkClient{api: sdk.NewClient(opts...)}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	msg, err := c.api.Messages.New(ctx, newParams(req))
	if err != nil {
		return nil, classify(err)
	}
	return convertMessage(msg), nil
}

// classify marks throttling, overload and 5xx replies as retryable.
func classify(err error) error {
	wrapped := eris.Wrap(err, "anthropic: create message")
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return wrapped
	}
	if apiErr.StatusCode == statusOverloaded || resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(wrapped, apiErr.StatusCode)
	}
	return wrapped
}

func newParams(req MessageRequest) sdk.MessageNewParams {
	p := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  make([]sdk.MessageParam, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		block := sdk.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			p.Messages = append(p.Messages, sdk.NewAssistantMessage(block))
		} else {
			p.Messages = append(p.Messages, sdk.NewUserMessage(block))
		}
	}
	for _, s := range req.System {
		block := sdk.TextBlockParam{Text: s.Text}
		if s.CacheControl != nil {
			block.CacheControl = sdk.NewCacheControlEphemeralParam()
			if s.CacheControl.TTL != "" {
				block.CacheControl.TTL = sdk.CacheControlEphemeralTTL(s.CacheControl.TTL)
			}
		}
		p.System = append(p.System, block)
	}
	if req.Temperature != nil {
		p.Temperature = sdk.Float(*req.Temperature)
	}
	return p
}

func convertMessage(msg *sdk.Message) *MessageResponse {
	out := &MessageResponse{
		ID:           msg.ID,
		Model:        string(msg.Model),
		StopReason:   string(msg.StopReason),
		StopSequence: msg.StopSequence,
		Content:      make([]ContentBlock, 0, len(msg.Content)),
		Usage: TokenUsage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
	}
	for _, block := range msg.Content {
		out.Content = append(out.Content, ContentBlock{Type: block.Type, Text: block.Text})
	}
	return out
}
