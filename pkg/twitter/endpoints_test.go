package twitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeScreenName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"alice", "alice"},
		{"@alice", "alice"},
		{"  @bob_99  ", "bob_99"},
		{"  charlie ", "charlie"},
		{"@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeScreenName(tt.input))
		})
	}
}

func TestIsValidScreenName(t *testing.T) {
	valid := []string{"a", "alice", "bob_99", "A1_b2_C3", "x_______9999999"}
	for _, name := range valid {
		assert.True(t, IsValidScreenName(name), "expected %q to be valid", name)
	}

	invalid := []string{
		"",
		"thisnameiswaytoolong",
		"../bad",
		"name.",
		"has..dots",
		"with space",
		"dash-ed",
		"héllo",
		"semi;colon",
	}
	for _, name := range invalid {
		assert.False(t, IsValidScreenName(name), "expected %q to be invalid", name)
	}
}

func TestTimelineURL(t *testing.T) {
	url := TimelineURL("https://api.example.com", "123", "", 50)
	assert.Contains(t, url, "user_id=123")
	assert.Contains(t, url, "count=50")
	assert.NotContains(t, url, "cursor")

	url = TimelineURL("https://api.example.com", "123", "abc", 50)
	assert.Contains(t, url, "cursor=abc")
}

func TestUserURL(t *testing.T) {
	url := UserURL("https://api.example.com", "alice")
	assert.Equal(t, "https://api.example.com/api/v1/user_by_screen_name?screen_name=alice", url)
}
