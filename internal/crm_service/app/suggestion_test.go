package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Generate(ctx context.Context, req SuggestRequest) ([]string, error) {
	args := m.Called(ctx, req)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

func TestSuggestionService_Suggest(t *testing.T) {
	ctx := context.Background()

	t.Run("GeneratorOutputClamped", func(t *testing.T) {
		gen := new(MockTextGenerator)
		long := strings.Repeat("é", 150)
		gen.On("Generate", ctx, SuggestRequest{Context: "spring sale", Tone: "fun", N: 2}).
			Return([]string{long, "  ", "second", "third"}, nil).Once()

		out, err := NewSuggestionService(gen, discardLogger()).Suggest(ctx, SuggestRequest{Context: " spring sale ", Tone: "fun", N: 2})
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, MaxSuggestionLength, utf8.RuneCountInString(out[0]))
		assert.Equal(t, "second", out[1])
		gen.AssertExpectations(t)
	})

	t.Run("GeneratorErrorFallsBack", func(t *testing.T) {
		gen := new(MockTextGenerator)
		gen.On("Generate", ctx, mock.Anything).Return(nil, errors.New("timeout")).Once()

		out, err := NewSuggestionService(gen, discardLogger()).Suggest(ctx, SuggestRequest{Context: "20% off", Audience: "loyal shoppers"})
		require.NoError(t, err)
		assert.Len(t, out, DefaultSuggestionCount)
		for _, s := range out {
			assert.LessOrEqual(t, utf8.RuneCountInString(s), MaxSuggestionLength)
		}
		assert.Contains(t, out[0], "loyal shoppers")
	})

	t.Run("EmptyGeneratorOutputFallsBack", func(t *testing.T) {
		gen := new(MockTextGenerator)
		gen.On("Generate", ctx, mock.Anything).Return([]string{}, nil).Once()

		out, err := NewSuggestionService(gen, discardLogger()).Suggest(ctx, SuggestRequest{Context: "hello", N: 1})
		require.NoError(t, err)
		assert.Len(t, out, 1)
	})

	t.Run("NilGenerator", func(t *testing.T) {
		out, err := NewSuggestionService(nil, discardLogger()).Suggest(ctx, SuggestRequest{Context: "hello", N: 50})
		require.NoError(t, err)
		assert.NotEmpty(t, out)
		assert.LessOrEqual(t, len(out), MaxSuggestionCount)
	})

	t.Run("ContextRequired", func(t *testing.T) {
		_, err := NewSuggestionService(nil, discardLogger()).Suggest(ctx, SuggestRequest{Context: "  "})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
