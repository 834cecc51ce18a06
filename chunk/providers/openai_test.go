package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGetEmbedder(t *testing.T) {
	RegisterEmbedder("register_test", func(config map[string]interface{}) (Embedder, error) {
		return nil, fmt.Errorf("factory invoked")
	})

	factory, err := GetEmbedderFactory("register_test")
	require.NoError(t, err)
	_, err = factory(nil)
	assert.EqualError(t, err, "factory invoked")

	_, err = GetEmbedderFactory("never_registered")
	assert.Error(t, err)

	assert.Contains(t, ListEmbedders(), "openai")
	assert.Contains(t, ListEmbedders(), "register_test")
}

func TestNewOpenAIEmbedderRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(map[string]interface{}{})
	assert.Error(t, err)

	_, err = NewOpenAIEmbedder(map[string]interface{}{"api_key": ""})
	assert.Error(t, err)

	e, err := NewOpenAIEmbedder(map[string]interface{}{"api_key": "test-key"})
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestOpenAIEmbedderDimension(t *testing.T) {
	e, err := NewOpenAIEmbedder(map[string]interface{}{
		"api_key": "test-key",
		"model":   "text-embedding-3-large",
	})
	require.NoError(t, err)

	dim, err := e.Dimension()
	require.NoError(t, err)
	assert.Equal(t, 3072, dim)

	e, err = NewOpenAIEmbedder(map[string]interface{}{
		"api_key": "test-key",
		"model":   "unknown-model",
	})
	require.NoError(t, err)
	_, err = e.Dimension()
	assert.Error(t, err)
}

func TestOpenAIEmbedderEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var resp embeddingResponse
		// Answer out of order to exercise index-based reassembly.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float64 `json:"embedding"`
			}{Index: i, Embedding: []float64{float64(i), 1}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(map[string]interface{}{
		"api_key": "test-key",
		"api_url": server.URL,
	})
	require.NoError(t, err)

	vectors, err := e.Embed(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Equal(t, []float64{float64(i), 1}, v)
	}

	empty, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestOpenAIEmbedderEmbedErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(map[string]interface{}{
		"api_key": "bad-key",
		"api_url": server.URL,
	})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"text"})
	assert.Error(t, err)
}
