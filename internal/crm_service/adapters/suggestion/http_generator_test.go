package suggestion

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aradsms/crm_services/internal/crm_service/app"
	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPGenerator_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body generateRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "spring sale", body.Context)
		assert.Equal(t, "friendly", body.Tone)
		assert.Equal(t, 2, body.N)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(generateResponseBody{Suggestions: []string{"one", "two"}})
	}))
	defer server.Close()

	g := NewHTTPGenerator(testLogger(), server.URL, "test-key", 0, server.Client())
	out, err := g.Generate(context.Background(), app.SuggestRequest{Context: "spring sale", Tone: "friendly", N: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, out)
}

func TestHTTPGenerator_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message":"overloaded"}`))
	}))
	defer server.Close()

	g := NewHTTPGenerator(testLogger(), server.URL, "", 0, server.Client())
	_, err := g.Generate(context.Background(), app.SuggestRequest{Context: "x", N: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestHTTPGenerator_Generate_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	g := NewHTTPGenerator(testLogger(), server.URL, "", 0, server.Client())
	_, err := g.Generate(context.Background(), app.SuggestRequest{Context: "x", N: 1})
	assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
}

func TestHTTPGenerator_Generate_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	g := NewHTTPGenerator(testLogger(), server.URL, "", 20*time.Millisecond, nil)
	_, err := g.Generate(context.Background(), app.SuggestRequest{Context: "x", N: 1})
	assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
}

func TestHTTPGenerator_FallsBackThroughService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := app.NewSuggestionService(NewHTTPGenerator(testLogger(), server.URL, "", 0, server.Client()), testLogger())
	out, err := svc.Suggest(context.Background(), app.SuggestRequest{Context: "weekend deal", N: 2})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
