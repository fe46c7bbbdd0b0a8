package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationRuntimeHost(t *testing.T) {
	c := Conversation{URL: "https://runtime-9.prod-runtime.example.test/conversations/abc"}
	assert.Equal(t, "https://runtime-9.prod-runtime.example.test", c.RuntimeHost())
	assert.Equal(t, "runtime-9", c.RuntimeID())

	c = Conversation{}
	assert.Empty(t, c.RuntimeHost())
	assert.Empty(t, c.RuntimeID())

	c = Conversation{URL: "::not a url"}
	assert.Empty(t, c.RuntimeHost())
}

func TestConversationDisplayHelpers(t *testing.T) {
	c := Conversation{}
	assert.Equal(t, "Untitled", c.DisplayTitle())
	assert.Equal(t, "UNKNOWN", c.DisplayStatus())
	assert.Equal(t, "unknown", c.ShortID())

	c = Conversation{ID: "0123456789abcdef", Title: "Build fix", Status: StatusStopped}
	assert.Equal(t, "01234567", c.ShortID())
	assert.Equal(t, "Build fix", c.DisplayTitle())
}

func TestConversationIsActive(t *testing.T) {
	running := Conversation{Status: StatusRunning, URL: "https://rt.example.test"}
	assert.True(t, running.IsActive())

	// Running without a runtime URL is not reachable
	assert.False(t, (&Conversation{Status: StatusRunning}).IsActive())
	assert.False(t, (&Conversation{Status: StatusStopped, URL: "https://rt.example.test"}).IsActive())
}

func TestErrorTaxonomy(t *testing.T) {
	err := NewNotFoundError("conversation", "abc123")
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, ErrNotFound))

	var nfe *NotFoundError
	assert.True(t, errors.As(err, &nfe))
	assert.Equal(t, "conversation", nfe.Resource)

	assert.True(t, IsAuthFailure(ErrAuthenticationFailed))
	assert.True(t, IsAuthFailure(ErrInsufficientPermission))
	assert.False(t, IsAuthFailure(ErrNotFound))
	assert.False(t, IsAuthFailure(nil))
}
