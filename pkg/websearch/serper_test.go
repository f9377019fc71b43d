package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeu/agent/pkg/config"
)

func serperWithServer(t *testing.T, handler http.HandlerFunc) *serperSearch {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := newSerperSearch(&config.WebSearchConfig{SerperAPIKey: "key"})
	require.NoError(t, err)
	svc.baseURL = server.URL
	return svc
}

func TestSerperSearch(t *testing.T) {
	t.Run("formats organic results", func(t *testing.T) {
		svc := serperWithServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "key", r.Header.Get("X-API-KEY"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "마라탕 레시피 재료", body["q"])
			assert.Equal(t, "kr", body["gl"])

			json.NewEncoder(w).Encode(map[string]any{
				"organic": []map[string]string{
					{"title": "마라탕 만들기", "snippet": "마라소스 50g, 두부", "link": "https://example.com/1"},
					{"title": "마라탕 황금레시피", "snippet": "숙주 한 줌", "link": "https://example.com/2"},
					{"title": "세 번째", "snippet": "잘림", "link": "https://example.com/3"},
				},
			})
		})

		docs, err := svc.Search(context.Background(), "마라탕", 2)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "마라탕 만들기", docs[0].Title)
		assert.Equal(t, "serper_dev", docs[0].Source)
		assert.Contains(t, docs[0].Content, "[검색 결과 1]")
		assert.Contains(t, docs[0].Content, "링크: https://example.com/1")
	})

	t.Run("rate limit degrades to placeholder", func(t *testing.T) {
		svc := serperWithServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		docs, err := svc.Search(context.Background(), "마라탕", 3)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "rate_limit", docs[0].Source)
		assert.Equal(t, "API 호출 제한을 초과했습니다.", docs[0].Content)
	})

	t.Run("server error degrades to placeholder", func(t *testing.T) {
		svc := serperWithServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		docs, err := svc.Search(context.Background(), "마라탕", 3)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "api_error", docs[0].Source)
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := newSerperSearch(&config.WebSearchConfig{})
		require.Error(t, err)
	})
}

func TestNew_EngineSelection(t *testing.T) {
	svc, err := New(&config.WebSearchConfig{Engine: "serper", SerperAPIKey: "key"})
	require.NoError(t, err)
	assert.NotNil(t, svc)

	_, err = New(&config.WebSearchConfig{Engine: "altavista"})
	require.Error(t, err)
}

func TestCleanHTML(t *testing.T) {
	assert.Equal(t, `김치찌개 "황금" 레시피`, cleanHTML("<b>김치찌개</b> &quot;황금&quot; 레시피"))
	assert.Equal(t, "A & B", cleanHTML("A &amp; B"))
}
