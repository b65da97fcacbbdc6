// Package client loads GraphQL queries over HTTP into a normalized record store.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Loader struct {
	endpoint   string
	token      string
	httpClient *http.Client
	store      *Store
	logger     *zap.Logger
}

type Option func(*Loader)

func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.httpClient = c }
}

func WithStore(s *Store) Option {
	return func(l *Loader) { l.store = s }
}

func NewLoader(endpoint, token string, logger *zap.Logger, opts ...Option) *Loader {
	l := &Loader{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      NewStore(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Store() *Store { return l.store }

type request struct {
	Query         string              `json:"query"`
	OperationName string              `json:"operationName,omitempty"`
	Variables     jsoniter.RawMessage `json:"variables"`
}

type gqlError struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path"`
}

func (e gqlError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (at %v)", e.Message, e.Path)
}

type response struct {
	Data   map[string]interface{} `json:"data"`
	Errors []gqlError             `json:"errors"`
}

// Load runs the named query and publishes its data into the store. GraphQL errors are
// returned after any partial data has been published.
func (l *Loader) Load(ctx context.Context, name, query string, variables map[string]interface{}) (Record, error) {
	if variables == nil {
		variables = map[string]interface{}{}
	}
	vars, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("encode variables of %s: %w", name, err)
	}
	l.logger.Sugar().Infof("fetching query %s with %s", name, vars)

	body, err := json.Marshal(request{Query: query, OperationName: name, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "bearer "+l.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("fetch %s: status %d: %w", name, resp.StatusCode, err)
	}

	if out.Data != nil {
		l.store.Publish(out.Data)
	}

	if len(out.Errors) > 0 {
		errs := lo.Map(out.Errors, func(e gqlError, _ int) error { return e })
		return l.root(), fmt.Errorf("query %s: %w", name, errors.Join(errs...))
	}
	if resp.StatusCode != http.StatusOK {
		return l.root(), fmt.Errorf("query %s: unexpected status %d", name, resp.StatusCode)
	}
	return l.root(), nil
}

func (l *Loader) root() Record {
	r, _ := l.store.Root()
	return r
}
