package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlmodel-graphql/internal/gqlrequest"
)

func graphqlPost(query string) *http.Request {
	body, _ := json.Marshal(map[string]string{"query": query})
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGraphQLRequestMiddleware_StoresAnalysis(t *testing.T) {
	var seen *gqlrequest.Analysis
	handler := GraphQLRequestMiddleware(GraphQLRequestConfig{
		Limits:      gqlrequest.Limits{MaxDepth: 3},
		Fingerprint: func() string { return "fp" },
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = gqlrequest.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, graphqlPost("query Types { _types }"))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "Types", seen.OperationName)
	assert.Len(t, seen.OperationHash, 64)
}

func TestGraphQLRequestMiddleware_RejectsDeepQueries(t *testing.T) {
	called := false
	handler := GraphQLRequestMiddleware(GraphQLRequestConfig{
		Limits: gqlrequest.Limits{MaxDepth: 2},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, graphqlPost("{ a { b { c } } }"))

	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var payload struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Len(t, payload.Errors, 1)
	assert.Contains(t, payload.Errors[0].Message, "selection depth 3 exceeds 2")
}

func TestGraphQLRequestMiddleware_PassesThroughEmptyRequests(t *testing.T) {
	called := false
	handler := GraphQLRequestMiddleware(GraphQLRequestConfig{
		Limits: gqlrequest.Limits{MaxDepth: 1},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Nil(t, gqlrequest.FromContext(r.Context()))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.True(t, called)
}

func TestGraphQLRequestMiddleware_LeavesBodyReadable(t *testing.T) {
	var query string
	handler := GraphQLRequestMiddleware(GraphQLRequestConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		query = payload.Query
	}))

	handler.ServeHTTP(httptest.NewRecorder(), graphqlPost("{ _types }"))
	assert.Equal(t, "{ _types }", query)
}
