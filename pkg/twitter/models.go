package twitter

import "time"

// UserProfile is the resolved metadata for a collection subject
type UserProfile struct {
	ID                  string    `json:"id"`
	ScreenName          string    `json:"screen_name"`
	Name                string    `json:"name"`
	ProfileImageURL     string    `json:"profile_image_url"`
	StatusesCount       int       `json:"statuses_count"`
	IsBlueVerified      bool      `json:"is_blue_verified"`
	CreatedAt           time.Time `json:"created_at"`
	DefaultProfileImage bool      `json:"default_profile_image"`
}

// Tweet is a single timeline item; only the timestamp matters downstream
type Tweet struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// TweetPage is one page of a newest-first timeline.
// An empty NextCursor means there are no further pages.
type TweetPage struct {
	Tweets     []Tweet `json:"tweets"`
	NextCursor string  `json:"next_cursor"`
}

// LoginRequest is the payload sent to establish a session
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the opaque session token returned after login
type LoginResponse struct {
	SessionToken string `json:"session_token"`
}

type userResponse struct {
	User *UserProfile `json:"user"`
}
