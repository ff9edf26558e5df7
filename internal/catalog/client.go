// Package catalog provides a client for the external problem catalog.
// It queries LeetCode's public GraphQL endpoint to verify that a problem
// exists and to fetch its canonical title and difficulty.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when the catalog has no problem for the slug.
// It is distinct from transport errors so callers can word rejections
// differently.
var ErrNotFound = errors.New("problem not found in catalog")

// problemQuery fetches the fields the validator needs for one problem.
const problemQuery = `
query questionData($titleSlug: String!) {
    question(titleSlug: $titleSlug) {
        questionId
        title
        titleSlug
        difficulty
    }
}`

// Problem is the typed catalog lookup result. Untyped API payloads never
// leave this package.
type Problem struct {
	QuestionID string
	Title      string
	TitleSlug  string
	Difficulty string
}

// Client queries the problem catalog over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a catalog client with an explicit request timeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type graphqlRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type graphqlResponse struct {
	Data struct {
		Question *struct {
			QuestionID string `json:"questionId"`
			Title      string `json:"title"`
			TitleSlug  string `json:"titleSlug"`
			Difficulty string `json:"difficulty"`
		} `json:"question"`
	} `json:"data"`
}

// GetProblem looks up a problem by its canonical slug.
// Returns ErrNotFound if the catalog has no such problem; any other error
// is a transport or protocol failure.
func (c *Client) GetProblem(ctx context.Context, slug string) (*Problem, error) {
	body, err := json.Marshal(graphqlRequest{
		Query:     problemQuery,
		Variables: map[string]string{"titleSlug": slug},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("slug", slug).Msg("Catalog returned non-OK status")
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var decoded graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	q := decoded.Data.Question
	if q == nil {
		return nil, ErrNotFound
	}

	return &Problem{
		QuestionID: q.QuestionID,
		Title:      q.Title,
		TitleSlug:  q.TitleSlug,
		Difficulty: q.Difficulty,
	}, nil
}
