package client_test

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"pollex.nl/bookshelf"
	"pollex.nl/bookshelf/client"
	"pollex.nl/bookshelf/memstore"
	"pollex.nl/bookshelf/schema"
	"pollex.nl/bookshelf/server"
)

func TestLoadSendsBearerToken(t *testing.T) {
	var gotAuth, gotType, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`{"data": {"repository": {"name": "relay"}}}`))
	}))
	defer ts.Close()

	core, logs := observer.New(zap.InfoLevel)
	loader := client.NewLoader(ts.URL, "secret", zap.New(core))

	root, err := loader.Load(context.Background(), "AppRepositoryNameQuery",
		`query AppRepositoryNameQuery { repository(owner: "facebook", name: "relay") { name } }`, nil)
	require.NoError(t, err)

	assert.Equal(t, "bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{
		"query": "query AppRepositoryNameQuery { repository(owner: \"facebook\", name: \"relay\") { name } }",
		"operationName": "AppRepositoryNameQuery",
		"variables": {}
	}`, gotBody)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "fetching query AppRepositoryNameQuery with {}", logs.All()[0].Message)

	assert.Equal(t, client.Ref{Ref: "client:root:repository"}, root["repository"])
	repo, ok := loader.Store().Get("client:root:repository")
	require.True(t, ok)
	assert.Equal(t, "relay", repo["name"])
}

func TestLoadRejectsUnencodableVariables(t *testing.T) {
	var called bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	core, logs := observer.New(zap.InfoLevel)
	loader := client.NewLoader(ts.URL, "", zap.New(core))

	_, err := loader.Load(context.Background(), "Ratio", `query Ratio($r: Float) { ratio(r: $r) }`,
		map[string]interface{}{"r": math.Inf(1)})

	assert.ErrorContains(t, err, "encode variables of Ratio")
	assert.False(t, called)
	assert.Zero(t, logs.Len())
}

func TestLoadReturnsGraphQLErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"books": null}, "errors": [{"message": "connection refused", "path": ["books"]}]}`))
	}))
	defer ts.Close()

	loader := client.NewLoader(ts.URL, "", zap.NewNop())
	root, err := loader.Load(context.Background(), "Books", `{ books { id } }`, nil)

	assert.ErrorContains(t, err, "connection refused")
	require.NotNil(t, root)
	assert.Nil(t, root["books"])
}

func TestLoadNormalizesLibrary(t *testing.T) {
	store := memstore.New()
	require.NoError(t, bookshelf.Seed(context.Background(), store))
	s, err := schema.New(store, zap.NewNop())
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(s, zap.NewNop(), server.Options{}).Handler())
	defer ts.Close()

	loader := client.NewLoader(ts.URL+"/graphql", "token", zap.NewNop())
	root, err := loader.Load(context.Background(), "AuthorQuery",
		`query AuthorQuery($id: ID) { author(id: $id) { __typename id name books { __typename id name } } }`,
		map[string]interface{}{"id": "2"})
	require.NoError(t, err)

	assert.Equal(t, client.Ref{Ref: "Author:2"}, root["author"])

	author, ok := loader.Store().Get("Author:2")
	require.True(t, ok)
	assert.Equal(t, "Brandon Sanderson", author["name"])
	assert.ElementsMatch(t, []interface{}{client.Ref{Ref: "Book:2"}, client.Ref{Ref: "Book:4"}}, author["books"])

	book, ok := loader.Store().Get("Book:4")
	require.True(t, ok)
	assert.Equal(t, "The Hero of Ages", book["name"])

	assert.ElementsMatch(t, []string{client.RootKey, "Author:2", "Book:2", "Book:4"}, loader.Store().Keys())
}
