package anthropic

import "strings"

// MessageRequest is one Messages API call. The analyst sends a single user
// turn under a cached system prompt.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      []SystemBlock
	Messages    []Message
	Temperature *float64
}

// SystemBlock is a piece of the system prompt.
type SystemBlock struct {
	Text         string
	CacheControl *CacheControl
}

// CacheControl marks the end of a cacheable prompt prefix. TTL is "5m" or
// "1h"; empty uses the API default.
type CacheControl struct {
	TTL string
}

// Message is a conversation turn. Role is "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// MessageResponse is the part of the API reply the analyst reads.
type MessageResponse struct {
	ID           string
	Model        string
	Content      []ContentBlock
	StopReason   string
	StopSequence string
	Usage        TokenUsage
}

// ContentBlock is a reply block; only "text" blocks carry Text.
type ContentBlock struct {
	Type string
	Text string
}

// TokenUsage is what the cost tracker bills.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// Text concatenates the text blocks of r.
func (r *MessageResponse) Text() string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// CachedSystem wraps a system prompt in one block with a five minute cache
// breakpoint, so the several calls of one audit share the prefix.
func CachedSystem(text string) []SystemBlock {
	return []SystemBlock{{Text: text, CacheControl: &CacheControl{TTL: "5m"}}}
}
