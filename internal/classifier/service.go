package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const analyzePath = "/api/analyze"

// Service calls an external analysis endpoint:
//
//	POST {baseURL}/api/analyze
//	{"entries": [{"content": "...", "date": "..."}], "useCloudAI": false, "mode": "auto"}
//
// and expects {"detectedLoop": {"topic": "...", "suggestionText": "..."}} or
// {"detectedLoop": null}.
type Service struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewService builds a Service. A nil client gets a plain http.Client; the
// caller bounds each call through ctx.
func NewService(baseURL string, client *http.Client, logger *zap.Logger) *Service {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    client,
		logger:  logger.Named("classifier.service"),
	}
}

type analyzeRequest struct {
	Entries    []Sample `json:"entries"`
	UseCloudAI bool     `json:"useCloudAI"`
	Mode       Mode     `json:"mode"`
}

type analyzeResponse struct {
	DetectedLoop *struct {
		Topic          string `json:"topic"`
		SuggestionText string `json:"suggestionText"`
	} `json:"detectedLoop"`
}

func (s *Service) Classify(ctx context.Context, req Request) (*Detection, error) {
	mode := req.Options.Mode
	if mode == "" {
		mode = ModeAuto
	}
	body, err := json.Marshal(analyzeRequest{
		Entries:    req.Entries,
		UseCloudAI: req.Options.UseRemote,
		Mode:       mode,
	})
	if err != nil {
		return nil, fmt.Errorf("classifier: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, unavailable("build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.http.Do(httpReq)
	if err != nil {
		s.logger.Warn("analyze request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, unavailable("%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Warn("analyze request rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return nil, unavailable("status %d", resp.StatusCode)
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, unavailable("decode response: %v", err)
	}

	s.logger.Debug("analyze request completed",
		zap.Int("entries", len(req.Entries)),
		zap.Bool("detected", out.DetectedLoop != nil),
		zap.Duration("elapsed", time.Since(start)))

	if out.DetectedLoop == nil {
		return nil, nil
	}
	return normalize(&Detection{
		Topic:        out.DetectedLoop.Topic,
		GuidanceText: out.DetectedLoop.SuggestionText,
	}), nil
}
