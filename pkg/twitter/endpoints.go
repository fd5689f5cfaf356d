package twitter

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// LoginEndpoint establishes or refreshes an account session
	LoginEndpoint = "/api/v1/login"

	// UserEndpoint resolves a screen name to a user profile
	UserEndpoint = "/api/v1/user_by_screen_name"

	// TimelineEndpoint returns a page of a user's timeline, newest first
	TimelineEndpoint = "/api/v1/user_tweets"

	// MaxScreenNameLen is the upstream limit on screen name length
	MaxScreenNameLen = 15
)

// UserURL constructs the URL for resolving a screen name
func UserURL(baseURL, screenName string) string {
	params := url.Values{}
	params.Set("screen_name", screenName)
	return fmt.Sprintf("%s%s?%s", baseURL, UserEndpoint, params.Encode())
}

// TimelineURL constructs the URL for fetching a timeline page
func TimelineURL(baseURL, userID, cursor string, count int) string {
	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("count", fmt.Sprintf("%d", count))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return fmt.Sprintf("%s%s?%s", baseURL, TimelineEndpoint, params.Encode())
}

// NormalizeScreenName trims whitespace and strips a leading @
func NormalizeScreenName(screenName string) string {
	screenName = strings.TrimSpace(screenName)
	screenName = strings.TrimPrefix(screenName, "@")
	return screenName
}

// IsValidScreenName checks a screen name against upstream rules:
// 1-15 characters, letters, digits and underscores only
func IsValidScreenName(screenName string) bool {
	if screenName == "" || len(screenName) > MaxScreenNameLen {
		return false
	}
	if strings.Contains(screenName, "..") || strings.HasSuffix(screenName, ".") {
		return false
	}

	for _, char := range screenName {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}

	return true
}
