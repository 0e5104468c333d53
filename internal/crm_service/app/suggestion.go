package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

const (
	DefaultSuggestionCount = 3
	MaxSuggestionCount     = 10
	MaxSuggestionLength    = 100
)

// SuggestRequest describes the campaign a message is wanted for.
type SuggestRequest struct {
	Context  string `json:"context"`
	Audience string `json:"audience,omitempty"`
	Tone     string `json:"tone,omitempty"`
	N        int    `json:"n"`
}

// TextGenerator produces candidate campaign messages.
type TextGenerator interface {
	Generate(ctx context.Context, req SuggestRequest) ([]string, error)
}

// SuggestionService asks the generator for messages and falls back to canned text.
type SuggestionService struct {
	generator TextGenerator
	logger    *slog.Logger
}

// NewSuggestionService accepts a nil generator; every request is then served canned text.
func NewSuggestionService(generator TextGenerator, logger *slog.Logger) *SuggestionService {
	return &SuggestionService{
		generator: generator,
		logger:    logger.With("component", "suggestion_service"),
	}
}

// Suggest returns at most req.N messages of at most MaxSuggestionLength characters each.
func (s *SuggestionService) Suggest(ctx context.Context, req SuggestRequest) ([]string, error) {
	req.Context = strings.TrimSpace(req.Context)
	if req.Context == "" {
		return nil, domain.NewValidationError("context", "is required")
	}
	switch {
	case req.N <= 0:
		req.N = DefaultSuggestionCount
	case req.N > MaxSuggestionCount:
		req.N = MaxSuggestionCount
	}

	if s.generator != nil {
		out, err := s.generator.Generate(ctx, req)
		if err == nil {
			if cleaned := clampSuggestions(out, req.N); len(cleaned) > 0 {
				suggestionsServedCounter.WithLabelValues("generator").Inc()
				return cleaned, nil
			}
			err = fmt.Errorf("%w: generator returned no usable suggestions", domain.ErrDependencyUnavailable)
		}
		s.logger.WarnContext(ctx, "Suggestion generator failed, using canned suggestions", "error", err)
	}

	suggestionsServedCounter.WithLabelValues("fallback").Inc()
	return clampSuggestions(cannedSuggestions(req), req.N), nil
}

func cannedSuggestions(req SuggestRequest) []string {
	audience := strings.TrimSpace(req.Audience)
	if audience == "" {
		audience = "you"
	}
	opener := "Hi"
	switch strings.ToLower(strings.TrimSpace(req.Tone)) {
	case "formal", "professional":
		opener = "Dear customer"
	case "playful", "fun", "casual":
		opener = "Hey there"
	case "urgent":
		opener = "Last chance"
	}
	return []string{
		fmt.Sprintf("%s, %s: %s", opener, audience, req.Context),
		fmt.Sprintf("%s! Something new for %s. %s", opener, audience, req.Context),
		fmt.Sprintf("We picked this for %s: %s", audience, req.Context),
		fmt.Sprintf("%s, thanks for being with us. %s", opener, req.Context),
		fmt.Sprintf("Don't miss out, %s. %s", audience, req.Context),
	}
}

func clampSuggestions(in []string, n int) []string {
	out := make([]string, 0, n)
	for _, s := range in {
		if len(out) == n {
			break
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, truncateRunes(s, MaxSuggestionLength))
	}
	return out
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}
