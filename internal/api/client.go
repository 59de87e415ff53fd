// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tarkov-dev/site/pkg/core"
)

// DefaultTimeout is used when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of a failed response is copied into the error.
const maxErrorBody = 512

// Client talks to the tarkov.dev GraphQL API. Every call is a single attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Healthcheck checks if the API is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?query=%7B__typename%7D", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// GraphQLError is one entry of the errors array of a response. Path elements
// are field names (string) or list indices (float64).
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// ResponseError is returned when the API answers with GraphQL errors.
type ResponseError struct {
	Errors []GraphQLError
}

func (e *ResponseError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ge := range e.Errors {
		msgs[i] = ge.Message
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// Query posts a GraphQL query and decodes the data object into out.
// A response carrying both data and errors decodes the data and returns a
// *ResponseError.
func (c *Client) Query(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("query request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("query returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		if len(r.Errors) > 0 {
			return &ResponseError{Errors: r.Errors}
		}
		return errors.New("response has no data")
	}
	if out != nil {
		if err := json.Unmarshal(r.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}
	if len(r.Errors) > 0 {
		return &ResponseError{Errors: r.Errors}
	}
	return nil
}

// Items fetches every item with names in the given language.
func (c *Client) Items(ctx context.Context, lang string) ([]core.Item, error) {
	var data struct {
		Items []core.Item `json:"items"`
	}
	if err := c.Query(ctx, itemsQuery, map[string]any{"lang": lang}, &data); err != nil {
		return nil, fmt.Errorf("items (%s): %w", lang, err)
	}
	return data.Items, nil
}

// ItemNames fetches only the translated names of every item.
func (c *Client) ItemNames(ctx context.Context, lang string) ([]core.Item, error) {
	var data struct {
		Items []core.Item `json:"items"`
	}
	if err := c.Query(ctx, itemNamesQuery, map[string]any{"lang": lang}, &data); err != nil {
		return nil, fmt.Errorf("item names (%s): %w", lang, err)
	}
	return data.Items, nil
}

// Barters fetches all trader barters.
func (c *Client) Barters(ctx context.Context) ([]core.Barter, error) {
	var data struct {
		Barters []core.Barter `json:"barters"`
	}
	if err := c.Query(ctx, bartersQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("barters: %w", err)
	}
	return data.Barters, nil
}

// Crafts fetches all hideout crafts.
func (c *Client) Crafts(ctx context.Context) ([]core.Craft, error) {
	var data struct {
		Crafts []core.Craft `json:"crafts"`
	}
	if err := c.Query(ctx, craftsQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("crafts: %w", err)
	}
	return data.Crafts, nil
}

// Traders fetches all traders with names in the given language.
func (c *Client) Traders(ctx context.Context, lang string) ([]core.Trader, error) {
	var data struct {
		Traders []core.Trader `json:"traders"`
	}
	if err := c.Query(ctx, tradersQuery, map[string]any{"lang": lang}, &data); err != nil {
		return nil, fmt.Errorf("traders (%s): %w", lang, err)
	}
	return data.Traders, nil
}

// Maps fetches the live map records in the given language.
func (c *Client) Maps(ctx context.Context, lang string) ([]core.MapData, error) {
	var data struct {
		Maps []core.MapData `json:"maps"`
	}
	if err := c.Query(ctx, mapsQuery, map[string]any{"lang": lang}, &data); err != nil {
		return nil, fmt.Errorf("maps (%s): %w", lang, err)
	}
	return data.Maps, nil
}

// Quests fetches all trader tasks.
func (c *Client) Quests(ctx context.Context) ([]core.Quest, error) {
	var data struct {
		Tasks []core.Quest `json:"tasks"`
	}
	if err := c.Query(ctx, questsQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("quests: %w", err)
	}
	return data.Tasks, nil
}
