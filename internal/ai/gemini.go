package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultGeminiModel is used when a request names no model.
const DefaultGeminiModel = "gemini-1.5-flash"

type geminiCall func(ctx context.Context, m *genai.GenerativeModel, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// GeminiClient runs requests against the Gemini API.
type GeminiClient struct {
	apiKey  string
	timeout time.Duration
	opts    []option.ClientOption
	call    geminiCall
}

// NewGeminiClient returns a Gemini runtime. opts are appended after the API
// key option (endpoint overrides, custom HTTP clients).
func NewGeminiClient(apiKey string, timeout time.Duration, opts ...option.ClientOption) *GeminiClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		apiKey:  apiKey,
		timeout: timeout,
		opts:    opts,
		call: func(ctx context.Context, m *genai.GenerativeModel, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
			return m.GenerateContent(ctx, parts...)
		},
	}
}

// Generate maps system messages to the model's system instruction and every
// other message to a text part.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini: %w (set GEMINI_API_KEY or gemini_api_key)", ErrMissingAPIKey)
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := append([]option.ClientOption{option.WithAPIKey(c.apiKey)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	name := req.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	model := client.GenerativeModel(name)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	var system []string
	var parts []genai.Part
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}
	if len(parts) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	resp, err := c.call(ctx, model, parts...)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	return geminiResponse(resp)
}

func geminiResponse(resp *genai.GenerateContentResponse) (*GenerateResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return nil, ErrEmptyResponse
	}
	out := &GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: b.String()}}}}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// classifyGeminiError maps gRPC status codes onto the package's typed errors.
func classifyGeminiError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &BadRequestError{APIError: &APIError{StatusCode: http.StatusBadRequest, Code: "blocked", Message: blocked.Error()}}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &UnreachableError{Host: "gemini", Err: err}
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("gemini: %w", err)
	}
	apiErr := &APIError{StatusCode: httpStatusOf(st.Code()), Code: st.Code().String(), Message: st.Message()}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return &AuthError{APIError: apiErr}
	case codes.InvalidArgument:
		if containsFold(st.Message(), "api key") {
			return &AuthError{APIError: apiErr}
		}
		return &BadRequestError{APIError: apiErr}
	case codes.ResourceExhausted:
		if containsAnyFold(st.Message(), "quota", "billing") {
			return &QuotaExceededError{APIError: apiErr}
		}
		return &RateLimitError{APIError: apiErr}
	case codes.NotFound:
		return &ModelNotFoundError{APIError: apiErr}
	case codes.Unavailable, codes.DeadlineExceeded:
		return &UnreachableError{Host: "gemini", Err: err}
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func httpStatusOf(c codes.Code) int {
	switch c {
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
