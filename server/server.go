// Package server exposes a GraphQL schema over HTTP.
package server

import (
	"net/http"
	"strings"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	jsoniter "github.com/json-iterator/go"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Options struct {
	// GraphiQL serves the in-browser explorer on GET /graphql.
	GraphiQL    bool
	CORSOrigins []string
	Metrics     *Metrics
}

type Server struct {
	schema  *graphql.Schema
	logger  *zap.Logger
	opts    Options
	metrics *Metrics
}

func New(schema *graphql.Schema, logger *zap.Logger, opts Options) *Server {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics("bookshelf")
	}
	return &Server{schema: schema, logger: logger, opts: opts, metrics: metrics}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := s.router()

	router.Get("/health", s.healthCheck)
	router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	router.Method(http.MethodPost, "/graphql", &relay.Handler{Schema: s.schema})
	router.Get("/graphql", s.graphqlGet)

	return router
}

// router mounts the middleware stack. Recoverer sits inside Logger and the metrics so
// that recovered panics are logged and counted as 500s.
func (s *Server) router() chi.Router {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(Logger(s.logger))
	router.Use(s.metrics.Middleware)
	router.Use(chimiddleware.Recoverer)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	return router
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// graphqlGet runs ?query= requests and otherwise serves the explorer to browsers.
func (s *Server) graphqlGet(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	query := params.Get("query")
	if query == "" {
		if s.opts.GraphiQL && strings.Contains(r.Header.Get("Accept"), "text/html") {
			playground.Handler("bookshelf", r.URL.Path).ServeHTTP(w, r)
			return
		}
		http.Error(w, "must provide query string", http.StatusBadRequest)
		return
	}

	operationName := params.Get("operationName")
	if isMutation(query, operationName) {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Can only perform a mutation operation from a POST request.", http.StatusMethodNotAllowed)
		return
	}

	var variables map[string]interface{}
	if raw := params.Get("variables"); raw != "" {
		if err := json.UnmarshalFromString(raw, &variables); err != nil {
			http.Error(w, "variables must be a JSON object", http.StatusBadRequest)
			return
		}
	}

	resp := s.schema.Exec(r.Context(), query, operationName, variables)
	body, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode graphql response", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// isMutation reports whether the operation a request selects is a mutation. Documents that
// do not parse are left for the schema to reject.
func isMutation(query, operationName string) bool {
	doc, gqlErr := parser.ParseQuery(&ast.Source{Input: query})
	if gqlErr != nil {
		return false
	}

	op := doc.Operations.ForName(operationName)
	return op != nil && op.Operation == ast.Mutation
}
