package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mathieupelo/sentiment-reddit/internal/signal/config"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/dto"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
	"github.com/mathieupelo/sentiment-reddit/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiClassifierName tags signals produced by the Gemini path so
// downstream consumers can discount heterogeneous methodologies.
const geminiClassifierName = "gemini_financial"

// geminiClassifierRepository is an implementation of ClassifierRepository
// that scores post text with the Google Gemini API.
type geminiClassifierRepository struct {
	client         *http.Client
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiClassifierRepository creates a new instance of geminiClassifierRepository.
func NewGeminiClassifierRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) (ClassifierRepository, error) {
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	tokenLimiter := ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute)

	return &geminiClassifierRepository{
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		tokenLimiter:   tokenLimiter,
		genAiClient:    genAiClient,
	}, nil
}

func (r *geminiClassifierRepository) Name() string {
	return geminiClassifierName
}

// Classify scores one post text. Empty text yields no result rather than
// an error so the post is silently excluded from aggregation.
func (r *geminiClassifierRepository) Classify(ctx context.Context, text string) (*dto.TextSentiment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	prompt := BuildClassifySentimentPrompt(text)

	geminiResp, err := r.executeGeminiRequest(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return r.parseSentimentResponse(geminiResp)
}

func (r *geminiClassifierRepository) executeGeminiRequest(ctx context.Context, prompt string) (*dto.GeminiAPIResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}
	geminiTokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(geminiTokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)

	if err := r.tokenLimiter.Wait(ctx, int(geminiTokenResp.TotalTokens)); err != nil {
		return nil, fmt.Errorf("failed to wait for token limit: %w", err)
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	payload := dto.GeminiAPIRequest{
		Contents: []dto.Content{{Parts: []dto.Part{{Text: prompt}}}},
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	apiURL := fmt.Sprintf("%s/%s:generateContent?key=%s", r.cfg.Gemini.BaseURL, r.cfg.Gemini.Model, r.cfg.Gemini.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Gemini API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.logger.Error("Received non-OK response from Gemini API", logger.IntField("status_code", resp.StatusCode))
		return nil, fmt.Errorf("received non-OK response from Gemini API: %d - %s", resp.StatusCode, string(body))
	}

	var geminiResp dto.GeminiAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	return &geminiResp, nil
}

func (r *geminiClassifierRepository) parseSentimentResponse(resp *dto.GeminiAPIResponse) (*dto.TextSentiment, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		// The model declined to answer; treat as no contribution.
		return nil, nil
	}

	jsonString := resp.Candidates[0].Content.Parts[0].Text
	jsonString = strings.Trim(jsonString, "`json\n`")

	var result struct {
		Sentiment float64 `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(jsonString), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sentiment from Gemini response: %w", err)
	}

	if result.Sentiment < -1.0 {
		result.Sentiment = -1.0
	}
	if result.Sentiment > 1.0 {
		result.Sentiment = 1.0
	}

	return &dto.TextSentiment{
		Score:  result.Sentiment,
		Method: geminiClassifierName,
	}, nil
}

// BuildClassifySentimentPrompt builds the prompt asking Gemini to score a
// social-media post about a stock.
func BuildClassifySentimentPrompt(text string) string {
	return fmt.Sprintf(`You are a financial sentiment classifier for social-media posts about stocks.

Post text:
"""
%s
"""

Score the overall investor sentiment of the post toward the company or stock it discusses.
Respond with JSON only, no explanation:

{
  "sentiment": {number between -1.0 (very negative) and 1.0 (very positive)}
}`, text)
}
