package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"beps/internal/domain/services"
)

// LogoutClient invalidates access tokens at the auth provider with
// GET {base}/user/logout.
type LogoutClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewLogoutClient creates a client for the auth provider at baseURL.
func NewLogoutClient(baseURL string) services.SessionRevoker {
	return &LogoutClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Logout sends the token as a bearer credential to the logout endpoint
func (c *LogoutClient) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call logout: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("logout failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
