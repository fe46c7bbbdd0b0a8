package api

import (
	"net/url"
	"strings"
)

// Conversation statuses reported by the service.
const (
	StatusRunning = "RUNNING"
	StatusStopped = "STOPPED"
)

// Conversation is the structured form of a conversation record.
// Fields are validated and defaulted once here instead of every consumer
// re-deriving them from raw maps.
type Conversation struct {
	ID            string `json:"conversation_id"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	RuntimeStatus string `json:"runtime_status,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	LastUpdatedAt string `json:"last_updated_at,omitempty"`
	URL           string `json:"url,omitempty"`
	SessionAPIKey string `json:"session_api_key,omitempty"`
}

// DisplayTitle returns the title or "Untitled" when empty.
func (c *Conversation) DisplayTitle() string {
	if c.Title == "" {
		return "Untitled"
	}
	return c.Title
}

// DisplayStatus returns the status or "UNKNOWN" when empty.
func (c *Conversation) DisplayStatus() string {
	if c.Status == "" {
		return "UNKNOWN"
	}
	return c.Status
}

// ShortID returns the first 8 characters of the conversation ID.
func (c *Conversation) ShortID() string {
	if len(c.ID) > 8 {
		return c.ID[:8]
	}
	if c.ID == "" {
		return "unknown"
	}
	return c.ID
}

// IsActive reports whether the conversation is running with a live runtime.
func (c *Conversation) IsActive() bool {
	return c.Status == StatusRunning && c.URL != ""
}

// RuntimeHost derives the base runtime endpoint (scheme://host) from the
// conversation URL. Returns "" when the conversation has no runtime.
func (c *Conversation) RuntimeHost() string {
	if c.URL == "" {
		return ""
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + u.Host
}

// RuntimeID extracts the runtime identifier, the first hostname label of the
// runtime URL. Returns "" when unavailable.
func (c *Conversation) RuntimeID() string {
	host := c.RuntimeHost()
	if host == "" {
		return ""
	}
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}

// SearchResult is one page of a conversation listing.
type SearchResult struct {
	Results    []Conversation `json:"results"`
	NextPageID string         `json:"next_page_id,omitempty"`
}

// Git change statuses from the runtime git-status endpoint.
const (
	ChangeModified = "M"
	ChangeAdded    = "A"
	ChangeDeleted  = "D"
	ChangeUnmerged = "U"
)

// FileChange is one uncommitted file in a conversation workspace.
type FileChange struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// StartResult is the response body of the conversation start endpoint.
type StartResult struct {
	Status string `json:"status,omitempty"`
	URL    string `json:"url,omitempty"`
}
