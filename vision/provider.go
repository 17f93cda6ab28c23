// Package vision classifies report images. The Provider calls an external
// multimodal model; the fallback classifier in fallback.go substitutes for it
// when the provider is unreachable.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// analysisPrompt enumerates the recognized civic-issue categories and pins the
// reply to a strict JSON object. Changing the field list breaks parseReply.
const analysisPrompt = `Analyze this image for civic issues reported by a citizen.

Identify if the image contains any of the following civic problems:
- Potholes or damaged roads
- Garbage or waste accumulation
- Broken streetlights or poles
- Drainage issues, flooding, or water leaks
- Tree hazards or fallen branches
- Damaged traffic signs or signals
- Public property vandalism or graffiti
- Illegal parking or encroachment

If NO clear civic issue is found (e.g. photos of people, food, pets, indoor rooms, selfies), output isCivicIssue: false.

Provide the output in strict JSON format:
{
  "title": "Short descriptive title (max 5-7 words)",
  "description": "Detailed description of the problem observing visual details like size, severity, surroundings. Mention specific hazards.",
  "isCivicIssue": boolean,
  "validationReason": "Explanation of why this is or isn't a valid civic issue",
  "severity": "Low", "Medium", or "High",
  "action": "Recommended action for municipal authorities"
}`

// ErrNoCredentials is returned when the provider has no API keys configured.
var ErrNoCredentials = errors.New("no vision API keys configured")

// Result is the provider's verdict for one image. IsCivicIssue=false is a
// valid outcome, not an error: the image was analyzed but does not depict a
// recognized issue.
type Result struct {
	Title            string
	Description      string
	IsCivicIssue     bool
	ValidationReason string
	Severity         string
	Action           string
}

// ComposedDescription is the long-form description persisted on a report:
// the model's description plus severity and recommended action.
func (r *Result) ComposedDescription() string {
	return fmt.Sprintf("%s\n\n**Severity:** %s\n**Recommended Action:** %s",
		r.Description, r.Severity, r.Action)
}

// Config configures the provider. APIKeys are credential slots tried in order;
// the rotation index is provider state, not a process-wide global.
type Config struct {
	BaseURL string
	Model   string
	APIKeys []string
	Timeout time.Duration

	// HTTPClient overrides the default client, used by tests.
	HTTPClient *http.Client
}

// Provider calls the external vision model's chat-completions endpoint.
type Provider struct {
	baseURL string
	model   string
	keys    []string
	client  *http.Client

	mu       sync.Mutex
	keyIndex int
}

// NewProvider creates a caption provider from cfg.
func NewProvider(cfg Config) *Provider {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Provider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		keys:    cfg.APIKeys,
		client:  client,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends the image plus the fixed analysis prompt to the vision model.
// Network failure, non-2xx status and malformed replies are uniformly adapter
// failure; each rotates to the next credential slot before the error is
// declared. A confident "not a civic issue" verdict is a success.
func (p *Provider) Classify(ctx context.Context, imageBytes []byte) (*Result, error) {
	if len(p.keys) == 0 {
		return nil, ErrNoCredentials
	}

	p.mu.Lock()
	start := p.keyIndex
	p.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < len(p.keys); attempt++ {
		slot := (start + attempt) % len(p.keys)
		result, err := p.classifyWithKey(ctx, p.keys[slot], imageBytes)
		if err == nil {
			p.mu.Lock()
			p.keyIndex = slot
			p.mu.Unlock()
			return result, nil
		}
		lastErr = err
		log.Printf("⚠️  Vision request failed on key slot %d: %v", slot, err)
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("all vision credential slots exhausted: %w", lastErr)
}

func (p *Provider) classifyWithKey(ctx context.Context, key string, imageBytes []byte) (*Result, error) {
	payload := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: analysisPrompt},
					{Type: "image_url", ImageURL: &imageURL{
						URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageBytes),
					}},
				},
			},
		},
		Temperature: 0.1,
		MaxTokens:   1024,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build vision request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("vision API error: %d - %s", resp.StatusCode, string(snippet))
	}

	var reply chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode vision response: %w", err)
	}
	if len(reply.Choices) == 0 {
		return nil, errors.New("vision response contained no choices")
	}

	return parseReply(reply.Choices[0].Message.Content)
}

// parseReply extracts the structured verdict from the model's text reply.
// Any reply missing a required field is rejected at the boundary rather than
// propagated as a partial object.
func parseReply(content string) (*Result, error) {
	clean := strings.ReplaceAll(content, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var raw struct {
		Title            *string `json:"title"`
		Description      *string `json:"description"`
		IsCivicIssue     *bool   `json:"isCivicIssue"`
		ValidationReason *string `json:"validationReason"`
		Severity         *string `json:"severity"`
		Action           *string `json:"action"`
	}
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("unparseable vision reply: %w", err)
	}
	if raw.Title == nil || raw.Description == nil || raw.IsCivicIssue == nil ||
		raw.ValidationReason == nil || raw.Severity == nil || raw.Action == nil {
		return nil, errors.New("vision reply missing required fields")
	}

	return &Result{
		Title:            *raw.Title,
		Description:      *raw.Description,
		IsCivicIssue:     *raw.IsCivicIssue,
		ValidationReason: *raw.ValidationReason,
		Severity:         *raw.Severity,
		Action:           *raw.Action,
	}, nil
}
