package tui

import (
	"context"
	"encoding/json"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joss/ohc/internal/api"
	ohcstrings "github.com/joss/ohc/internal/strings"
	"github.com/joss/ohc/internal/workspace"
)

// Message types
type pageMsg struct {
	results    []api.Conversation
	nextPageID string
}
type detailsMsg struct {
	conv    *api.Conversation
	changes []api.FileChange
}
type wokeMsg struct{ id string }
type savedMsg struct {
	path string
	size int
}
type errMsg error

// Service is the slice of the API client the browser drives.
type Service interface {
	SearchConversations(ctx context.Context, pageID string, limit int) (*api.SearchResult, error)
	GetConversation(ctx context.Context, conversationID string) (*api.Conversation, error)
	GetConversationChanges(ctx context.Context, conversationID, runtimeURL, sessionKey string) ([]api.FileChange, error)
	StartConversation(ctx context.Context, conversationID string, providers []string) (*api.StartResult, error)
	DownloadWorkspaceArchive(ctx context.Context, conversationID, runtimeURL, sessionKey string) ([]byte, error)
	GetTrajectory(ctx context.Context, conversationID, runtimeURL, sessionKey string) (json.RawMessage, error)
}

// Browser wires the model's async commands to an API client.
type Browser struct {
	svc Service
}

// NewBrowser creates a Browser on top of an API client.
func NewBrowser(svc Service) *Browser {
	return &Browser{svc: svc}
}

func (b *Browser) fetchPage(pageID string, limit int) tea.Cmd {
	return func() tea.Msg {
		result, err := b.svc.SearchConversations(context.Background(), pageID, limit)
		if err != nil {
			return errMsg(err)
		}
		return pageMsg{results: result.Results, nextPageID: result.NextPageID}
	}
}

func (b *Browser) fetchDetails(conversationID string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		conv, err := b.svc.GetConversation(ctx, conversationID)
		if err != nil {
			return errMsg(err)
		}

		// Changes are best effort: a stopped runtime simply shows none.
		var changes []api.FileChange
		if conv.IsActive() {
			changes, _ = b.svc.GetConversationChanges(ctx, conv.ID, conv.RuntimeHost(), conv.SessionAPIKey)
		}
		return detailsMsg{conv: conv, changes: changes}
	}
}

func (b *Browser) wake(conversationID string) tea.Cmd {
	return func() tea.Msg {
		if _, err := b.svc.StartConversation(context.Background(), conversationID, nil); err != nil {
			return errMsg(err)
		}
		return wokeMsg{id: conversationID}
	}
}

func (b *Browser) downloadArchive(conv *api.Conversation) tea.Cmd {
	return func() tea.Msg {
		data, err := b.svc.DownloadWorkspaceArchive(context.Background(), conv.ID, conv.RuntimeHost(), conv.SessionAPIKey)
		if err != nil {
			return errMsg(err)
		}

		path := workspace.UniquePath(ohcstrings.Slug(conv.DisplayTitle(), 50) + "_workspace.zip")
		if err := workspace.SaveArchive(path, data); err != nil {
			return errMsg(fmt.Errorf("save archive: %w", err))
		}
		return savedMsg{path: path, size: len(data)}
	}
}

func (b *Browser) downloadTrajectory(conv *api.Conversation) tea.Cmd {
	return func() tea.Msg {
		raw, err := b.svc.GetTrajectory(context.Background(), conv.ID, conv.RuntimeHost(), conv.SessionAPIKey)
		if err != nil {
			return errMsg(err)
		}

		pretty, err := prettyJSON(raw)
		if err != nil {
			return errMsg(err)
		}
		path := workspace.UniquePath(ohcstrings.Slug(conv.DisplayTitle(), 50) + "_trajectory.json")
		if err := workspace.SaveArchive(path, pretty); err != nil {
			return errMsg(fmt.Errorf("save trajectory: %w", err))
		}
		return savedMsg{path: path, size: len(pretty)}
	}
}

func prettyJSON(raw json.RawMessage) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode trajectory: %w", err)
	}
	return json.MarshalIndent(v, "", "  ")
}
