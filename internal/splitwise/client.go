// Package splitwise is a minimal read-only client for the Splitwise API:
// the auth exchange plus the four endpoints the migration pipeline consumes.
package splitwise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the production Splitwise API root.
const DefaultBaseURL = "https://secure.splitwise.com"

// ErrUnauthorized is returned when the API rejects the token or auth code.
var ErrUnauthorized = errors.New("splitwise rejected the credentials")

// Client calls the Splitwise REST API with a bearer token.
// All calls are blocking; callers impose timeouts through the http.Client
// or the context.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL and access token.
// A nil httpClient falls back to http.DefaultClient.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// ExchangeCode trades an OAuth authorization code for an access token.
func ExchangeCode(ctx context.Context, baseURL, clientID, clientSecret, code, redirectURI string, httpClient *http.Client) (string, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrUnauthorized)
	}
	return tr.AccessToken, nil
}

// GetCurrentUser fetches the profile of the token's owner. This doubles as
// token verification: an invalid token yields ErrUnauthorized.
func (c *Client) GetCurrentUser(ctx context.Context) (*CurrentUser, error) {
	var out currentUserResponse
	if err := c.get(ctx, "/api/v3.0/get_current_user", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// GetGroups lists all groups for the authenticated identity.
func (c *Client) GetGroups(ctx context.Context) ([]Group, error) {
	var out groupsResponse
	if err := c.get(ctx, "/api/v3.0/get_groups", nil, &out); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

// GetExpenses fetches one page of a group's expenses at the given offset.
func (c *Client) GetExpenses(ctx context.Context, groupID int64, limit, offset int) ([]Expense, error) {
	params := url.Values{
		"group_id": {strconv.FormatInt(groupID, 10)},
		"limit":    {strconv.Itoa(limit)},
		"offset":   {strconv.Itoa(offset)},
	}
	var out expensesResponse
	if err := c.get(ctx, "/api/v3.0/get_expenses", params, &out); err != nil {
		return nil, err
	}
	return out.Expenses, nil
}

// GetFriends lists the authenticated identity's friends.
func (c *Client) GetFriends(ctx context.Context) ([]Friend, error) {
	var out friendsResponse
	if err := c.get(ctx, "/api/v3.0/get_friends", nil, &out); err != nil {
		return nil, err
	}
	return out.Friends, nil
}

// get performs an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s returned %d", ErrUnauthorized, path, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
