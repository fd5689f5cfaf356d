package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tweetmap/pkg/apierrors"
	"tweetmap/pkg/logger"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Credentials identify one upstream account for login
type Credentials struct {
	Username  string
	Email     string
	Password  string
	UserAgent string
}

// Client talks to the upstream timeline API on behalf of one account
type Client struct {
	httpClient   *http.Client
	baseURL      string
	creds        Credentials
	sessionToken string
	logger       logger.Logger
}

// NewClient creates a client bound to one account's credentials.
// An existing session token may be set with SetSession before use.
func NewClient(baseURL string, timeout time.Duration, creds Credentials, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		creds:      creds,
		logger:     log,
	}
}

// SetSession installs a previously persisted session token
func (c *Client) SetSession(token string) {
	c.sessionToken = token
}

// SessionToken returns the current opaque session token
func (c *Client) SessionToken() string {
	return c.sessionToken
}

// Login establishes a session for the bound account and returns the new
// session token. The token is also installed on the client.
func (c *Client) Login(ctx context.Context) (string, error) {
	body, err := json.Marshal(LoginRequest{
		Username: c.creds.Username,
		Email:    c.creds.Email,
		Password: c.creds.Password,
	})
	if err != nil {
		return "", apierrors.Newf(apierrors.ErrorTypeUnknown, "failed to encode login request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LoginEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", apierrors.Newf(apierrors.ErrorTypeUnknown, "failed to create login request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp LoginResponse
	if err := c.doJSON(req, &resp); err != nil {
		return "", err
	}
	if resp.SessionToken == "" {
		return "", apierrors.New(apierrors.ErrorTypeAuthRejected, "login returned no session token")
	}

	c.sessionToken = resp.SessionToken
	c.logger.DebugWithFields("session established", map[string]interface{}{
		"account": c.creds.Username,
	})

	return resp.SessionToken, nil
}

// UserByScreenName resolves a subject's profile metadata
func (c *Client) UserByScreenName(ctx context.Context, screenName string) (*UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, UserURL(c.baseURL, screenName), nil)
	if err != nil {
		return nil, apierrors.Newf(apierrors.ErrorTypeUnknown, "failed to create request: %v", err)
	}

	var resp userResponse
	if err := c.doJSON(req, &resp); err != nil {
		if apierrors.Is(err, apierrors.ErrorTypeSubjectNotFound) {
			return nil, apierrors.Newf(apierrors.ErrorTypeSubjectNotFound, "no such user: %s", screenName)
		}
		return nil, err
	}
	if resp.User == nil {
		return nil, apierrors.Newf(apierrors.ErrorTypeSubjectNotFound, "no such user: %s", screenName)
	}

	return resp.User, nil
}

// UserTweets fetches one timeline page for a user, newest first
func (c *Client) UserTweets(ctx context.Context, userID, cursor string, count int) (*TweetPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, TimelineURL(c.baseURL, userID, cursor, count), nil)
	if err != nil {
		return nil, apierrors.Newf(apierrors.ErrorTypeUnknown, "failed to create request: %v", err)
	}

	var page TweetPage
	if err := c.doJSON(req, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// doJSON performs the request with account headers and decodes the response
func (c *Client) doJSON(req *http.Request, target interface{}) error {
	ua := c.creds.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json")
	if c.sessionToken != "" {
		req.Header.Set("Cookie", "auth_token="+c.sessionToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.WarnWithFields("upstream request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return apierrors.Newf(apierrors.ErrorTypeNetwork, "network error: %v", err)
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("upstream request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierrors.WithCode(apierrors.ErrorTypeNetwork, resp.StatusCode,
			fmt.Sprintf("failed to read response body: %v", err))
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse upstream response", map[string]interface{}{
			"url":          req.URL.String(),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return apierrors.WithCode(apierrors.ErrorTypeParsing, resp.StatusCode,
			fmt.Sprintf("failed to parse JSON: %v", err))
	}

	return nil
}

// checkResponseStatus maps upstream status codes onto the error taxonomy
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apierrors.WithCode(apierrors.ErrorTypeAuthRejected, resp.StatusCode,
			"session rejected by upstream")
	case resp.StatusCode == http.StatusNotFound:
		return apierrors.WithCode(apierrors.ErrorTypeSubjectNotFound, resp.StatusCode,
			"resource not found")
	case resp.StatusCode == http.StatusTooManyRequests:
		return apierrors.WithCode(apierrors.ErrorTypeUpstreamBlocked, resp.StatusCode,
			"rate limited by upstream")
	case resp.StatusCode >= 500:
		return apierrors.WithCode(apierrors.ErrorTypeServerError, resp.StatusCode,
			"upstream server error")
	default:
		return apierrors.WithCode(apierrors.ErrorTypeUnknown, resp.StatusCode,
			fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}
}
