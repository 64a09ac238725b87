package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/wrale/oauth2-device-client/internal/credentials"
	"github.com/wrale/oauth2-device-client/internal/validation"
)

const (
	// HTTP request timeouts
	defaultTimeout = 10 * time.Second

	// Upper bound on provider response bodies
	maxBodySize = 1 << 20
)

// Client talks to the provider endpoints using the stored client credentials
type Client struct {
	client         *http.Client
	creds          *credentials.Store
	oauth          *oauth2.Config
	deviceTokenURL string
	profileURL     string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for all provider calls
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a provider client for the configured endpoints
func NewClient(creds *credentials.Store, cfg Config, opts ...ClientOption) (*Client, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials are required")
	}

	endpoints := map[string]string{
		"device authorize URL": cfg.DeviceAuthorizeURL,
		"device token URL":     cfg.DeviceTokenURL,
		"refresh URL":          cfg.RefreshURL,
		"profile URL":          cfg.ProfileURL,
	}
	for name, raw := range endpoints {
		if raw == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("invalid %s: scheme must be http or https", name)
		}
	}

	c := &Client{
		client: &http.Client{Timeout: defaultTimeout},
		creds:  creds,
		oauth: &oauth2.Config{
			ClientID:     creds.ClientID(),
			ClientSecret: creds.ClientSecret(),
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				DeviceAuthURL: cfg.DeviceAuthorizeURL,
				TokenURL:      cfg.RefreshURL,
				AuthStyle:     oauth2.AuthStyleInParams,
			},
		},
		deviceTokenURL: cfg.DeviceTokenURL,
		profileURL:     cfg.ProfileURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// withClient makes x/oauth2 use our HTTP client
func (c *Client) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.client)
}

// DeviceAuthorize requests a device code with client_id and the configured scopes
func (c *Client) DeviceAuthorize(ctx context.Context) (*DeviceAuthorization, error) {
	resp, err := c.oauth.DeviceAuth(c.withClient(ctx))
	if err != nil {
		return nil, fmt.Errorf("requesting device code: %w", translateOAuth2Error(err))
	}

	if resp.DeviceCode == "" || resp.VerificationURI == "" {
		return nil, fmt.Errorf("device authorization response: %w", ErrMalformedResponse)
	}
	if err := validation.ValidateVerificationURI(resp.VerificationURI); err != nil {
		return nil, fmt.Errorf("device authorization response: %w: %v", ErrMalformedResponse, err)
	}
	if resp.VerificationURIComplete != "" {
		if err := validation.ValidateVerificationURI(resp.VerificationURIComplete); err != nil {
			return nil, fmt.Errorf("device authorization response: %w: %v", ErrMalformedResponse, err)
		}
	}

	return &DeviceAuthorization{
		DeviceCode:              resp.DeviceCode,
		UserCode:                resp.UserCode,
		VerificationURI:         resp.VerificationURI,
		VerificationURIComplete: resp.VerificationURIComplete,
		ExpiresAt:               resp.Expiry,
		Interval:                int(resp.Interval),
	}, nil
}

// PollToken makes one device access token request, RFC 8628 section 3.4
func (c *Client) PollToken(ctx context.Context, deviceCode string) (*Token, error) {
	data := url.Values{
		"client_id":   {c.creds.ClientID()},
		"device_code": {deviceCode},
		"grant_type":  {DeviceCodeGrantType},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.deviceTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+c.creds.BasicAuthHeaderValue())

	status, body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("sending token request: %w", err)
	}

	if status != http.StatusOK {
		return nil, parseErrorBody(status, body)
	}

	return parseTokenBody(body)
}

// RefreshToken exchanges a refresh token for a new token pair. client_id and
// client_secret travel in the form body.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}

	src := c.oauth.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", translateOAuth2Error(err))
	}

	// Providers without rotation may omit the refresh token
	newRefresh := tok.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	return &Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: newRefresh,
		ExpiresAt:    tok.Expiry,
	}, nil
}

// Profile fetches the profile of the user owning the access token
func (c *Client) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	status, body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("sending profile request: %w", err)
	}

	if status < 200 || status > 299 {
		return nil, parseErrorBody(status, body)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("parsing profile response: %w: %v", ErrMalformedResponse, err)
	}
	profile.Raw = json.RawMessage(body)

	return &profile, nil
}

// do sends the request and reads the body. Transport failures are reported
// as ErrProviderUnavailable.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading response: %v", ErrProviderUnavailable, err)
	}

	return resp.StatusCode, body, nil
}

// errorBody covers both the RFC 6749 error shape and the Webex
// {"message": ..., "errors": [{"description": ...}]} shape.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
	Errors           []struct {
		Description string `json:"description"`
	} `json:"errors"`
	Interval int `json:"interval"`
}

// parseErrorBody turns a non-2xx response into an *Error
func parseErrorBody(status int, body []byte) *Error {
	var eb errorBody
	if len(body) > 0 {
		// An unparsable body still yields an error classified by status
		_ = json.Unmarshal(body, &eb)
	}

	code := eb.Error
	description := eb.ErrorDescription
	if code == "" && len(eb.Errors) > 0 {
		code = eb.Errors[0].Description
	}
	if description == "" {
		description = eb.Message
	}

	e := newError(status, code, description)
	e.Interval = eb.Interval
	return e
}

// parseTokenBody parses a successful token response
func parseTokenBody(body []byte) (*Token, error) {
	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("parsing token response: %w: %v", ErrMalformedResponse, err)
	}
	if tokenResp.AccessToken == "" || tokenResp.RefreshToken == "" {
		return nil, fmt.Errorf("token response missing access or refresh token: %w", ErrMalformedResponse)
	}

	token := &Token{
		AccessToken:  tokenResp.AccessToken,
		TokenType:    tokenResp.TokenType,
		RefreshToken: tokenResp.RefreshToken,
	}
	if tokenResp.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return token, nil
}

// translateOAuth2Error maps x/oauth2 failures onto this package's errors
func translateOAuth2Error(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		e := parseErrorBody(status, rerr.Body)
		if e.Code == "" && rerr.ErrorCode != "" {
			e = newError(status, rerr.ErrorCode, rerr.ErrorDescription)
		}
		return e
	}

	// 2xx answers x/oauth2 could not use come back as plain errors
	msg := err.Error()
	if strings.Contains(msg, "missing access_token") ||
		strings.HasPrefix(msg, "unmarshal ") ||
		strings.Contains(msg, "cannot parse json") {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	// x/oauth2 reports transport failures without wrapping them
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
