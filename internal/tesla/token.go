package tesla

import (
	"context"
	"errors"
)

// accessTokenRequest is the fixed body for the refresh-token exchange.
type accessTokenRequest struct {
	GrantType    string `json:"grant_type"`
	Scope        string `json:"scope"`
	ClientID     string `json:"client_id"`
	RefreshToken string `json:"refresh_token"`
}

// GetAccessToken exchanges a long-lived refresh token for a short-lived
// bearer token. A failure here aborts the whole cycle, so everything that
// goes wrong is reported as an AuthError.
func (c *Client) GetAccessToken(ctx context.Context, refreshToken string) (AccessToken, error) {
	c.logger.Info("Fetching access token...")

	reqBody := accessTokenRequest{
		GrantType:    "refresh_token",
		Scope:        "openid email offline_access",
		ClientID:     "ownerapi",
		RefreshToken: refreshToken,
	}

	var token AccessToken
	if err := c.postJSON(ctx, "token exchange", c.authURL, reqBody, &token); err != nil {
		return AccessToken{}, &AuthError{Err: err}
	}
	if token.AccessToken == "" {
		return AccessToken{}, &AuthError{Err: errors.New("response contains no access token")}
	}

	return token, nil
}
