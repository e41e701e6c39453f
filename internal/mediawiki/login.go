package mediawiki

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
)

// Credentials are a wiki username and password, or a bot password
// ("User@BotName").
type Credentials struct {
	Username string
	Password string
}

type loginResponse struct {
	Login struct {
		Result   string `json:"result"`
		Reason   string `json:"reason"`
		UserID   int    `json:"lguserid"`
		Username string `json:"lgusername"`
	} `json:"login"`
}

// Login authenticates the session with action=login. The session cookies
// live in the client's cookie jar; subsequent queries assert a logged-in
// user so an expired session fails loudly instead of reading anonymously.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("%w: username and password are required", perrors.ErrAuthFailure)
	}

	token, err := c.loginToken(ctx)
	if err != nil {
		return fmt.Errorf("%w: fetching login token: %w", perrors.ErrAuthFailure, err)
	}

	params := url.Values{}
	params.Set("action", "login")
	params.Set("lgname", creds.Username)
	params.Set("lgpassword", creds.Password)
	params.Set("lgtoken", token)

	var resp loginResponse
	if err := c.call(ctx, http.MethodPost, params, &resp); err != nil {
		return fmt.Errorf("%w: %w", perrors.ErrAuthFailure, err)
	}
	if resp.Login.Result != "Success" {
		reason := resp.Login.Reason
		if reason == "" {
			reason = resp.Login.Result
		}
		return fmt.Errorf("%w: %s", perrors.ErrAuthFailure, reason)
	}

	c.assertUser = true
	c.logger.Info().
		Str("user", resp.Login.Username).
		Int("user_id", resp.Login.UserID).
		Msg("logged in")
	return nil
}

func (c *Client) loginToken(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "tokens")
	params.Set("type", "login")

	var resp queryResponse
	if err := c.call(ctx, http.MethodGet, params, &resp); err != nil {
		return "", err
	}
	var tokens struct {
		LoginToken string `json:"logintoken"`
	}
	if err := member(resp.Query, "tokens", &tokens); err != nil {
		return "", fmt.Errorf("decoding tokens: %w", err)
	}
	if tokens.LoginToken == "" {
		return "", fmt.Errorf("response carried no login token")
	}
	return tokens.LoginToken, nil
}

// SiteInfo describes the wiki behind the endpoint.
type SiteInfo struct {
	SiteName   string
	Generator  string
	Server     string
	Extensions []string
}

// HasExtension reports whether the named extension is installed.
func (s *SiteInfo) HasExtension(name string) bool {
	for _, e := range s.Extensions {
		if e == name {
			return true
		}
	}
	return false
}

// SiteInfo fetches general site metadata and the installed extensions.
func (c *Client) SiteInfo(ctx context.Context) (*SiteInfo, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "siteinfo")
	params.Set("siprop", "general|extensions")

	var resp queryResponse
	if err := c.call(ctx, http.MethodGet, params, &resp); err != nil {
		return nil, err
	}

	var general struct {
		SiteName  string `json:"sitename"`
		Generator string `json:"generator"`
		Server    string `json:"server"`
	}
	if err := member(resp.Query, "general", &general); err != nil {
		return nil, fmt.Errorf("decoding siteinfo: %w", err)
	}
	var extensions []struct {
		Name string `json:"name"`
	}
	if err := member(resp.Query, "extensions", &extensions); err != nil {
		return nil, fmt.Errorf("decoding extensions: %w", err)
	}

	info := &SiteInfo{
		SiteName:  general.SiteName,
		Generator: general.Generator,
		Server:    general.Server,
	}
	for _, e := range extensions {
		info.Extensions = append(info.Extensions, e.Name)
	}
	return info, nil
}
