package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitchell6/trello-weekly-report/internal/models"
	"golang.org/x/time/rate"
)

// Trello allows roughly 100 requests per 10 seconds per token; 10/s keeps us
// under it without queueing noticeably.
const requestsPerSecond = 10

type TrelloClient struct {
	Client   *http.Client
	BaseURL  string
	APIKey   string
	APIToken string

	limiter *rate.Limiter
}

func NewTrelloClient(baseURL, key, token string) *TrelloClient {
	return &TrelloClient{
		Client:   &http.Client{},
		BaseURL:  baseURL,
		APIKey:   key,
		APIToken: token,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// get performs a single credentialed GET against the Trello API and returns
// the raw response body. No retries: a failed request is the caller's 500.
func (tc *TrelloClient) get(ctx context.Context, path string) ([]byte, error) {
	if err := tc.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(tc.BaseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid Trello URL: %v", err)
	}
	q := u.Query()
	q.Set("key", tc.APIKey)
	q.Set("token", tc.APIToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := tc.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Trello: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Trello response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trello API returned non-200 status: %s, body: %s", resp.Status, string(body))
	}

	return body, nil
}

// BoardListsRaw returns the upstream JSON for /boards/{id}/lists untouched,
// for the proxy endpoints.
func (tc *TrelloClient) BoardListsRaw(ctx context.Context, boardID string) ([]byte, error) {
	return tc.get(ctx, fmt.Sprintf("/boards/%s/lists", boardID))
}

// BoardCardsRaw returns the upstream JSON for /boards/{id}/cards untouched.
func (tc *TrelloClient) BoardCardsRaw(ctx context.Context, boardID string) ([]byte, error) {
	return tc.get(ctx, fmt.Sprintf("/boards/%s/cards", boardID))
}

func (tc *TrelloClient) BoardLists(ctx context.Context, boardID string) ([]models.List, error) {
	body, err := tc.BoardListsRaw(ctx, boardID)
	if err != nil {
		return nil, err
	}
	var lists []models.List
	if err := json.Unmarshal(body, &lists); err != nil {
		return nil, fmt.Errorf("failed to decode Trello lists: %v", err)
	}
	return lists, nil
}

func (tc *TrelloClient) BoardCards(ctx context.Context, boardID string) ([]models.Card, error) {
	body, err := tc.BoardCardsRaw(ctx, boardID)
	if err != nil {
		return nil, err
	}
	var cards []models.Card
	if err := json.Unmarshal(body, &cards); err != nil {
		return nil, fmt.Errorf("failed to decode Trello cards: %v", err)
	}
	return cards, nil
}
