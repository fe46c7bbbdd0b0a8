// Package resolve turns a user-supplied conversation token into one full
// conversation ID. A token is either a 1-based position in the most recent
// listing, an ID prefix, or a full ID.
//
// This is the single resolution path shared by every command; business
// failures (out of range, ambiguous, not found) come back as typed errors
// wrapping ErrNoResult so callers can print them and return cleanly, while
// transport failures from the API client pass through untouched.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joss/ohc/internal/api"
)

const (
	// listWindow caps both the numeric and the prefix path at the most
	// recent conversations, trading completeness for a single unpaginated
	// lookup. Older conversations are not resolvable by number or prefix.
	listWindow = 100

	// fullIDLength is the UUID string length including hyphens. Tokens at
	// least this long are trusted as full IDs and passed through without
	// any lookup or format validation.
	fullIDLength = 36

	// maxCandidates bounds the candidate list in ambiguity diagnostics.
	maxCandidates = 5

	candidateTitleWidth = 40
)

// ErrNoResult is the sentinel wrapped by every business-logic resolution
// failure.
var ErrNoResult = errors.New("no conversation resolved")

// IsNoResult reports whether err is a resolution failure meant for the
// user rather than a transport error.
func IsNoResult(err error) bool {
	return errors.Is(err, ErrNoResult)
}

// OutOfRangeError reports a numeric token beyond the fetched window.
type OutOfRangeError struct {
	Requested int
	Min, Max  int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("conversation number %d is out of range (%d-%d)", e.Requested, e.Min, e.Max)
}

func (e *OutOfRangeError) Unwrap() error { return ErrNoResult }

// NotFoundError reports a prefix matching nothing in the window.
type NotFoundError struct {
	Prefix string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no conversation found with ID starting with %q", e.Prefix)
}

func (e *NotFoundError) Unwrap() error { return ErrNoResult }

// Candidate is one conversation competing for an ambiguous prefix.
type Candidate struct {
	ID    string
	Title string
}

// AmbiguousError reports a prefix matching more than one conversation.
// Candidates holds at most maxCandidates entries with truncated titles.
type AmbiguousError struct {
	Prefix     string
	Matches    int
	Candidates []Candidate
}

func (e *AmbiguousError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "multiple conversations match %q, use a longer ID:", e.Prefix)
	for _, c := range e.Candidates {
		fmt.Fprintf(&sb, "\n  %s - %s", c.ID, c.Title)
	}
	return sb.String()
}

func (e *AmbiguousError) Unwrap() error { return ErrNoResult }

// Lister is the slice of the API client the resolver needs.
type Lister interface {
	SearchConversations(ctx context.Context, pageID string, limit int) (*api.SearchResult, error)
}

// ConversationID resolves token to a full conversation ID.
//
// Numeric tokens select by 1-based position in the listing. Tokens of full
// UUID length are returned unchanged without any API call. Anything else is
// matched as an ID prefix against the listing window.
func ConversationID(ctx context.Context, lister Lister, token string) (string, error) {
	if n, err := strconv.Atoi(token); err == nil {
		return byNumber(ctx, lister, n)
	}

	if len(token) >= fullIDLength {
		return token, nil
	}

	return byPrefix(ctx, lister, token)
}

func byNumber(ctx context.Context, lister Lister, n int) (string, error) {
	result, err := lister.SearchConversations(ctx, "", listWindow)
	if err != nil {
		return "", err
	}

	count := len(result.Results)
	if n < 1 || n > count {
		return "", &OutOfRangeError{Requested: n, Min: 1, Max: count}
	}
	return result.Results[n-1].ID, nil
}

func byPrefix(ctx context.Context, lister Lister, prefix string) (string, error) {
	result, err := lister.SearchConversations(ctx, "", listWindow)
	if err != nil {
		return "", err
	}

	var matches []api.Conversation
	for _, conv := range result.Results {
		if strings.HasPrefix(conv.ID, prefix) {
			matches = append(matches, conv)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Prefix: prefix}
	case 1:
		return matches[0].ID, nil
	}

	candidates := make([]Candidate, 0, maxCandidates)
	for _, m := range matches {
		if len(candidates) == maxCandidates {
			break
		}
		candidates = append(candidates, Candidate{
			ID:    m.ID,
			Title: truncate(m.DisplayTitle(), candidateTitleWidth),
		})
	}
	return "", &AmbiguousError{Prefix: prefix, Matches: len(matches), Candidates: candidates}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
