package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesBaseURL(t *testing.T) {
	c := New("key", "https://example.test/api")
	assert.Equal(t, "https://example.test/api/", c.BaseURL())

	c = New("key", "https://example.test/api///")
	assert.Equal(t, "https://example.test/api/", c.BaseURL())

	c = New("key", "")
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/options/models", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Session-API-Key"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("secret", srv.URL+"/api/")
	assert.True(t, c.TestConnection(context.Background()))

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer bad.Close()

	c = New("secret", bad.URL+"/api/")
	assert.False(t, c.TestConnection(context.Background()))

	// Unreachable host reads as false, never an error
	c = New("secret", "http://127.0.0.1:1/api/")
	assert.False(t, c.TestConnection(context.Background()))
}

func TestSearchConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "page-2", r.URL.Query().Get("page_id"))
		json.NewEncoder(w).Encode(SearchResult{
			Results: []Conversation{
				{ID: "aaaa1111-0000-0000-0000-000000000000", Title: "First", Status: StatusRunning},
				{ID: "bbbb2222-0000-0000-0000-000000000000", Title: "Second", Status: StatusStopped},
			},
			NextPageID: "page-3",
		})
	}))
	defer srv.Close()

	c := New("secret", srv.URL+"/api/")
	result, err := c.SearchConversations(context.Background(), "page-2", 20)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "First", result.Results[0].Title)
	assert.Equal(t, "page-3", result.NextPageID)
}

func TestSearchConversationsPermissionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("session-scoped-key", srv.URL+"/api/")
	_, err := c.SearchConversations(context.Background(), "", 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientPermission)
	assert.Contains(t, err.Error(), "permission")
	assert.Contains(t, err.Error(), "full API key")
}

func TestSearchConversationsOtherStatusUntranslated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New("secret", srv.URL+"/api/")
	_, err := c.SearchConversations(context.Background(), "", 20)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
}

func TestGetConversationNullBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer srv.Close()

	c := New("secret", srv.URL+"/api/")
	_, err := c.GetConversation(context.Background(), "deadbeef-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/abc", r.URL.Path)
		json.NewEncoder(w).Encode(Conversation{
			ID:            "abc",
			Title:         "Fix the build",
			Status:        StatusRunning,
			URL:           "https://runtime-42.prod-runtime.example.test/vscode",
			SessionAPIKey: "sess-key",
		})
	}))
	defer srv.Close()

	c := New("secret", srv.URL+"/api/")
	conv, err := c.GetConversation(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Fix the build", conv.Title)
	assert.True(t, conv.IsActive())
	assert.Equal(t, "https://runtime-42.prod-runtime.example.test", conv.RuntimeHost())
	assert.Equal(t, "runtime-42", conv.RuntimeID())
}

func TestStartConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var payload map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []string{"github"}, payload["providers_set"])
		json.NewEncoder(w).Encode(StartResult{Status: "ok", URL: "https://runtime-7.example.test"})
	}))
	defer srv.Close()

	c := New("secret", srv.URL+"/api/")
	result, err := c.StartConversation(context.Background(), "abc", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://runtime-7.example.test", result.URL)
}

func TestStartConversationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"already starting"}`))
	}))
	defer srv.Close()

	c := New("secret", srv.URL+"/api/")
	_, err := c.StartConversation(context.Background(), "abc", []string{"github"})
	require.Error(t, err)

	var afe *ActionFailedError
	require.ErrorAs(t, err, &afe)
	assert.Equal(t, http.StatusConflict, afe.Status)
	assert.Contains(t, afe.Body, "already starting")
}

func TestGetConversationChanges(t *testing.T) {
	var gotSessionKey, gotAuth string
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/abc/git/changes", r.URL.Path)
		gotSessionKey = r.Header.Get("X-Session-API-Key")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]FileChange{
			{Path: "main.go", Status: ChangeModified},
			{Path: "new.go", Status: ChangeAdded},
		})
	}))
	defer runtime.Close()

	c := New("account-key", "https://example.test/api/")
	changes, err := c.GetConversationChanges(context.Background(), "abc", runtime.URL, "sess-key")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "sess-key", gotSessionKey)
	assert.Empty(t, gotAuth)

	// No session key: bearer fallback from the account key
	_, err = c.GetConversationChanges(context.Background(), "abc", runtime.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer account-key", gotAuth)
}

func TestGetConversationChangesNoRepository(t *testing.T) {
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer runtime.Close()

	c := New("secret", "https://example.test/api/")
	changes, err := c.GetConversationChanges(context.Background(), "abc", runtime.URL, "sess")
	require.NoError(t, err)
	assert.NotNil(t, changes)
	assert.Empty(t, changes)
}

func TestGetConversationChangesRepositoryUnavailable(t *testing.T) {
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer runtime.Close()

	c := New("secret", "https://example.test/api/")
	_, err := c.GetConversationChanges(context.Background(), "abc", runtime.URL, "sess")
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)
}

func TestGetFileContent(t *testing.T) {
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/abc/select-file", r.URL.Path)
		assert.Equal(t, "src/main.go", r.URL.Query().Get("file"))
		json.NewEncoder(w).Encode(map[string]string{"code": "package main\n"})
	}))
	defer runtime.Close()

	c := New("secret", "https://example.test/api/")
	content, err := c.GetFileContent(context.Background(), "abc", "src/main.go", runtime.URL, "sess")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", content)
}

func TestGetFileContentFallbackBody(t *testing.T) {
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer runtime.Close()

	c := New("secret", "https://example.test/api/")
	content, err := c.GetFileContent(context.Background(), "abc", "x", runtime.URL, "sess")
	require.NoError(t, err)
	assert.JSONEq(t, `{"unexpected":"shape"}`, content)
}

func TestGetFileContentErrorMapping(t *testing.T) {
	for _, tc := range []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusNotFound, func(t *testing.T, err error) {
			assert.True(t, IsNotFound(err))
			assert.Contains(t, err.Error(), "missing.go")
		}},
		{http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrAuthenticationFailed)
		}},
		{http.StatusInternalServerError, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrServerUnavailable)
		}},
		{http.StatusTeapot, func(t *testing.T, err error) {
			var se *StatusError
			assert.ErrorAs(t, err, &se)
		}},
	} {
		status := tc.status
		runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		c := New("secret", "https://example.test/api/")
		_, err := c.GetFileContent(context.Background(), "abc", "missing.go", runtime.URL, "sess")
		require.Error(t, err)
		tc.check(t, err)
		runtime.Close()
	}
}

func TestDownloadWorkspaceArchive(t *testing.T) {
	payload := []byte("PK\x03\x04fake-zip-bytes")
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/abc/zip-directory", r.URL.Path)
		w.Write(payload)
	}))
	defer runtime.Close()

	c := New("secret", "https://example.test/api/")
	data, err := c.DownloadWorkspaceArchive(context.Background(), "abc", runtime.URL, "sess")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadWorkspaceArchiveServerError(t *testing.T) {
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer runtime.Close()

	c := New("secret", "https://example.test/api/")
	_, err := c.DownloadWorkspaceArchive(context.Background(), "abc", runtime.URL, "sess")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerUnavailable)
	// The 500 narrative is distinguishable from the 401 and 404 cases
	assert.True(t, strings.Contains(err.Error(), "inaccessible") || strings.Contains(err.Error(), "unavailable"))
	assert.False(t, IsNotFound(err))
	assert.NotErrorIs(t, err, ErrAuthenticationFailed)
}

func TestGetTrajectoryRequiresRuntime(t *testing.T) {
	c := New("secret", "https://example.test/api/")
	_, err := c.GetTrajectory(context.Background(), "abc", "", "sess")
	require.Error(t, err)
}

func TestGetTrajectory(t *testing.T) {
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/abc/trajectory", r.URL.Path)
		w.Write([]byte(`{"trajectory":[{"action":"run"}]}`))
	}))
	defer runtime.Close()

	c := New("secret", "https://example.test/api/")
	raw, err := c.GetTrajectory(context.Background(), "abc", runtime.URL, "sess")
	require.NoError(t, err)
	assert.JSONEq(t, `{"trajectory":[{"action":"run"}]}`, string(raw))
}

func TestListWorkspaceFiles(t *testing.T) {
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/abc/list-files", r.URL.Path)
		assert.Equal(t, "/workspace/project", r.URL.Query().Get("path"))
		json.NewEncoder(w).Encode([]string{"/workspace/project/src/", "/workspace/project/README.md"})
	}))
	defer runtime.Close()

	c := New("secret", "https://example.test/api/")
	files, err := c.ListWorkspaceFiles(context.Background(), "abc", "/workspace/project", runtime.URL, "sess")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
