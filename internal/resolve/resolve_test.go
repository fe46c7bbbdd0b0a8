package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/ohc/internal/api"
)

// fakeLister serves a fixed listing and counts calls so tests can assert
// the zero-lookup path for full IDs.
type fakeLister struct {
	results []api.Conversation
	err     error
	calls   int
}

func (f *fakeLister) SearchConversations(ctx context.Context, pageID string, limit int) (*api.SearchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	results := f.results
	if len(results) > limit {
		results = results[:limit]
	}
	return &api.SearchResult{Results: results}, nil
}

func listing(n int) []api.Conversation {
	convs := make([]api.Conversation, n)
	for i := range convs {
		convs[i] = api.Conversation{
			ID:    uuid.New().String(),
			Title: fmt.Sprintf("Conversation %d", i+1),
		}
	}
	return convs
}

func TestResolveByNumber(t *testing.T) {
	lister := &fakeLister{results: listing(7)}

	for n := 1; n <= 7; n++ {
		id, err := ConversationID(context.Background(), lister, fmt.Sprintf("%d", n))
		require.NoError(t, err)
		assert.Equal(t, lister.results[n-1].ID, id)
	}
}

func TestResolveByNumberOutOfRange(t *testing.T) {
	lister := &fakeLister{results: listing(3)}

	for _, n := range []string{"0", "4", "-2", "100"} {
		id, err := ConversationID(context.Background(), lister, n)
		require.Error(t, err, "token %s", n)
		assert.Empty(t, id)
		assert.True(t, IsNoResult(err))

		var oor *OutOfRangeError
		require.ErrorAs(t, err, &oor)
		assert.Equal(t, 1, oor.Min)
		assert.Equal(t, 3, oor.Max)
		assert.Contains(t, err.Error(), "(1-3)")
	}
}

func TestResolveFullIDSkipsLookup(t *testing.T) {
	lister := &fakeLister{results: listing(5)}

	full := uuid.New().String()
	require.Len(t, full, 36)

	id, err := ConversationID(context.Background(), lister, full)
	require.NoError(t, err)
	assert.Equal(t, full, id)
	assert.Zero(t, lister.calls, "full IDs must not trigger an API call")

	// The threshold is length, not format: a 36-char non-UUID token is
	// passed through unresolved as well.
	odd := "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"
	require.Len(t, odd, 36)
	id, err = ConversationID(context.Background(), lister, odd)
	require.NoError(t, err)
	assert.Equal(t, odd, id)
	assert.Zero(t, lister.calls)
}

func TestResolveByPrefixUnique(t *testing.T) {
	convs := listing(5)
	convs[2].ID = "feed0000-1111-2222-3333-444444444444"
	lister := &fakeLister{results: convs}

	id, err := ConversationID(context.Background(), lister, "feed")
	require.NoError(t, err)
	assert.Equal(t, convs[2].ID, id)
	assert.Equal(t, 1, lister.calls)
}

func TestResolveByPrefixNotFound(t *testing.T) {
	lister := &fakeLister{results: listing(5)}

	id, err := ConversationID(context.Background(), lister, "zzz")
	require.Error(t, err)
	assert.Empty(t, id)
	assert.True(t, IsNoResult(err))

	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "zzz", nfe.Prefix)
}

func TestResolveByPrefixAmbiguous(t *testing.T) {
	for _, tc := range []struct {
		matches       int
		wantListed    int
	}{
		{2, 2},
		{5, 5},
		{9, 5},
	} {
		convs := make([]api.Conversation, tc.matches)
		for i := range convs {
			convs[i] = api.Conversation{
				ID:    fmt.Sprintf("abcd%04d-0000-0000-0000-000000000000", i),
				Title: "A very long conversation title that definitely exceeds the forty character cap",
			}
		}
		lister := &fakeLister{results: convs}

		id, err := ConversationID(context.Background(), lister, "abcd")
		require.Error(t, err)
		assert.Empty(t, id)
		assert.True(t, IsNoResult(err))

		var amb *AmbiguousError
		require.ErrorAs(t, err, &amb)
		assert.Equal(t, tc.matches, amb.Matches)
		assert.Len(t, amb.Candidates, tc.wantListed)
		for _, c := range amb.Candidates {
			assert.LessOrEqual(t, len(c.Title), 40)
		}
	}
}

func TestResolveTransportErrorPropagates(t *testing.T) {
	transport := errors.New("connection refused")
	lister := &fakeLister{err: transport}

	_, err := ConversationID(context.Background(), lister, "1")
	assert.ErrorIs(t, err, transport)
	assert.False(t, IsNoResult(err))

	_, err = ConversationID(context.Background(), lister, "abcd")
	assert.ErrorIs(t, err, transport)
}

func TestResolveWindowCap(t *testing.T) {
	// 150 conversations available, but resolution only sees the first 100
	lister := &fakeLister{results: listing(150)}

	_, err := ConversationID(context.Background(), lister, "120")
	require.Error(t, err)

	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 100, oor.Max)
}
