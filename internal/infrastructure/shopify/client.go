package shopify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"archie-core-shopify-app/internal/infrastructure/metrics"
	"archie-core-shopify-app/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// DefaultAPIVersion is the admin API version used when none is configured
const DefaultAPIVersion = "2025-10"

// ClientOptions configures a GraphQLClient
type ClientOptions struct {
	APIVersion  string
	Retries     int
	RateLimiter *RateLimiter
	Metrics     metrics.Recorder
}

// GraphQLClient runs admin GraphQL documents through go-shopify
type GraphQLClient struct {
	app         goshopify.App
	apiVersion  string
	retries     int
	rateLimiter *RateLimiter
	metrics     metrics.Recorder
	logger      zerolog.Logger

	// parsed documents, keyed by query text
	documents sync.Map
}

// NewGraphQLClient creates a new admin GraphQL client
func NewGraphQLClient(apiKey, apiSecret string, opts ClientOptions, logger zerolog.Logger) *GraphQLClient {
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	return &GraphQLClient{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion:  opts.APIVersion,
		retries:     opts.Retries,
		rateLimiter: opts.RateLimiter,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *GraphQLClient) createClient(shop string, accessToken string) (*goshopify.Client, error) {
	options := []goshopify.Option{goshopify.WithVersion(c.apiVersion)}
	if c.retries > 0 {
		options = append(options, goshopify.WithRetry(c.retries))
	}
	client, err := goshopify.NewClient(c.app, shop, accessToken, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Query validates query, waits for the shop's rate limit and runs it
func (c *GraphQLClient) Query(ctx context.Context, shop string, accessToken string, query string, vars map[string]interface{}, resp interface{}) error {
	if err := c.validateDocument(query); err != nil {
		return err
	}

	if err := c.rateLimiter.Wait(ctx, shop); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	client, err := c.createClient(shop, accessToken)
	if err != nil {
		return err
	}

	start := time.Now()
	err = client.GraphQL.Query(ctx, query, vars, resp)
	c.metrics.RecordPlatformCall("graphql", StatusFromError(err), time.Since(start))
	if err != nil {
		c.logger.Debug().Err(err).Str("shop", shop).Msg("GraphQL query failed")
		return fmt.Errorf("graphql query: %w", err)
	}

	return nil
}

func (c *GraphQLClient) validateDocument(query string) error {
	if _, ok := c.documents.Load(query); ok {
		return nil
	}
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return fmt.Errorf("invalid graphql document: %w", err)
	}
	if len(doc.Operations) == 0 {
		return errors.New("invalid graphql document: no operation")
	}
	c.documents.Store(query, doc)
	return nil
}

// StatusFromError maps a go-shopify error to the HTTP status it carries.
// nil maps to 200 and transport failures to 0.
func StatusFromError(err error) int {
	if err == nil {
		return 200
	}

	var rateLimited goshopify.RateLimitError
	if errors.As(err, &rateLimited) {
		return rateLimited.Status
	}
	var responseErr goshopify.ResponseError
	if errors.As(err, &responseErr) {
		return responseErr.Status
	}
	var responseErrPtr *goshopify.ResponseError
	if errors.As(err, &responseErrPtr) {
		return responseErrPtr.Status
	}
	return 0
}

var _ ports.GraphQLClient = (*GraphQLClient)(nil)
