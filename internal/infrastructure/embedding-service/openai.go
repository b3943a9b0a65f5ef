package embedding_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DRSN-tech/wine-search/internal/cfg"
	"github.com/DRSN-tech/wine-search/pkg/backoff"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/DRSN-tech/wine-search/pkg/logger"
)

// Ответ на пачку из тысяч текстов с векторами 3072 float укладывается с запасом
var maxResponseSize = 64 << 20

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string    `json:"model"`
	Error *apiError `json:"error"`
}

// OpenAIService клиент OpenAI-совместимого эндпоинта /embeddings.
type OpenAIService struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
	backoff    *backoff.Policy
	logger     logger.Logger
}

func NewOpenAIService(cfg *cfg.EmbeddingCfg, client *http.Client, logger logger.Logger) *OpenAIService {
	const maxDelay = 30 * time.Second

	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &OpenAIService{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		client:     client,
		maxRetries: maxRetries,
		backoff:    backoff.NewPolicy(cfg.RetryBaseDelay, maxDelay, backoff.DefaultJitter),
		logger:     logger,
	}
}

func (s *OpenAIService) ModelName() string {
	return s.model
}

// Embed отправляет все тексты одним запросом. Повторы ограничены maxRetries, по умолчанию их нет.
func (s *OpenAIService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	const op = "OpenAIService.Embed"

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		vectors, err := s.embedOnce(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if attempt == s.maxRetries-1 || ctx.Err() != nil {
			break
		}

		sleepTime := s.backoff.Delay(attempt)
		s.logger.Warnf("embedding request failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	if s.maxRetries > 1 {
		return nil, e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", s.maxRetries, lastErr))
	}
	return nil, e.Wrap(op, lastErr)
}

func (s *OpenAIService) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Input:          texts,
		Model:          s.model,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxResponseSize)+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > maxResponseSize {
		return nil, fmt.Errorf("%w: more than %d bytes from /embeddings", e.ErrResponseTooLarge, maxResponseSize)
	}

	var parsed embeddingResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return nil, fmt.Errorf("%w: HTTP %d: %s", e.ErrEmbeddingStatus, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", decodeErr)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: %s", e.ErrEmbeddingAPI, parsed.Error.Message)
	}

	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", e.ErrVectorCountMismatch, len(parsed.Data), len(texts))
	}

	// Ответ может прийти не по порядку: раскладываем векторы по полю index
	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(texts) || vectors[d.Index] != nil {
			return nil, fmt.Errorf("%w: bad or duplicate index %d", e.ErrVectorCountMismatch, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}
