// Package suggestion calls an external text-generation service for campaign message ideas.
package suggestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aradsms/crm_services/internal/crm_service/app"
	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

type HTTPGenerator struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

func NewHTTPGenerator(logger *slog.Logger, apiURL, apiKey string, timeout time.Duration, httpClient *http.Client) *HTTPGenerator {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPGenerator{
		logger:     logger.With("component", "suggestion_client"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

type generateRequestBody struct {
	Context  string `json:"context"`
	Audience string `json:"audience,omitempty"`
	Tone     string `json:"tone,omitempty"`
	N        int    `json:"n"`
}

type generateResponseBody struct {
	Suggestions []string `json:"suggestions"`
}

type errorResponseBody struct {
	Message string `json:"message"`
}

// Generate posts the request and returns the suggestions verbatim.
// Transport failures and non-2xx responses wrap domain.ErrDependencyUnavailable.
func (g *HTTPGenerator) Generate(ctx context.Context, req app.SuggestRequest) ([]string, error) {
	reqBytes, err := json.Marshal(generateRequestBody{
		Context:  req.Context,
		Audience: req.Audience,
		Tone:     req.Tone,
		N:        req.N,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal suggestion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("create suggestion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: suggestion service: %v", domain.ErrDependencyUnavailable, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read suggestion response (status %d): %v", domain.ErrDependencyUnavailable, httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		msg := fmt.Sprintf("status %d", httpResp.StatusCode)
		var er errorResponseBody
		if json.Unmarshal(body, &er) == nil && er.Message != "" {
			msg += ", message: " + er.Message
		}
		g.logger.WarnContext(ctx, "Suggestion service returned an error", "status_code", httpResp.StatusCode)
		return nil, fmt.Errorf("%w: suggestion service %s", domain.ErrDependencyUnavailable, msg)
	}

	var out generateResponseBody
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode suggestion response: %v", domain.ErrDependencyUnavailable, err)
	}
	g.logger.DebugContext(ctx, "Suggestions received", "count", len(out.Suggestions))
	return out.Suggestions, nil
}
