package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisp/internal/project"
)

const testKey = "anon-key"

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", testKey, append([]Option{WithHTTPClient(srv.Client())}, opts...)...)
}

func TestListProjects(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/projects", r.URL.Path)
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		assert.Equal(t, testKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[
			{"id":"b","name":"beta","status":"deployed","created_at":"2026-01-02T00:00:00Z","private":false},
			{"id":"a","name":"alpha","status":"creating","created_at":"2026-01-01T00:00:00Z","private":true}
		]`)
	}, WithAccessToken("user-token"))

	rows, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].ID)
	assert.Equal(t, project.StatusDeployed, rows[0].Status)
	assert.True(t, rows[1].Private)
}

func TestListProjects_ZonelessTimestamp(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"a","created_at":"2024-05-01T10:00:00.123456"}]`)
	})

	rows, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), rows[0].Created())
}

func TestListPublicProjects(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/projects", r.URL.Path)
		assert.Equal(t, "eq.false", r.URL.Query().Get("private"))
		assert.Equal(t, "eq.deployed", r.URL.Query().Get("status"))
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		_, _ = io.WriteString(w, `[{"id":"c","name":"community","status":"deployed","created_at":"2026-01-03T00:00:00Z"}]`)
	})

	rows, err := c.ListPublicProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "community", rows[0].Title())
}

func TestAnonKeyUsedAsBearerWhenSignedOut(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	})
	_, err := c.ListProjects(context.Background())
	require.NoError(t, err)
}

func TestGetProject_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.missing", r.URL.Query().Get("id"))
		_, _ = io.WriteString(w, `[]`)
	})
	_, err := c.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var row project.NewRow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		assert.Equal(t, "my-app", row.Name)
		assert.Equal(t, project.StatusCreating, row.Status)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":"new-id","name":"my-app","status":"creating","project_id":"`+row.ProjectID+`"}]`)
	})

	row := project.Draft{Name: "My App", Description: "d", Prompt: "p"}.Row("u1")
	p, err := c.InsertProject(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, "new-id", p.ID)
	assert.Equal(t, row.ProjectID, p.ProjectID)
}

func TestUpdateProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.a", r.URL.Query().Get("id"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"private": true}, body)
		_, _ = io.WriteString(w, `[{"id":"a","private":true}]`)
	})

	priv := true
	p, err := c.UpdateProject(context.Background(), "a", project.Patch{Private: &priv})
	require.NoError(t, err)
	assert.True(t, p.Private)
}

func TestDeleteProject(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.a", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.DeleteProject(context.Background(), "a"))
	assert.True(t, called)
}

func TestRESTErrorDecoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"code":"42501","message":"permission denied for table projects","details":null,"hint":"check policies"}`)
	})

	err := c.DeleteProject(context.Background(), "a")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "42501", apiErr.Code)
	assert.Equal(t, "check policies", apiErr.Hint)
	assert.True(t, apiErr.Unauthorized())
	assert.Contains(t, err.Error(), "permission denied")
}

func TestGetUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":"u1","email":"me@example.com","role":"authenticated"}`)
	}, WithAccessToken("tok"))

	u, err := c.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, User{ID: "u1", Email: "me@example.com"}, u)
}

func TestGetUser_RequiresToken(t *testing.T) {
	c := New("http://unused", testKey)
	_, err := c.GetUser(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestAuthErrorShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"invalid_token","error_description":"token is expired"}`)
	}, WithAccessToken("old"))

	_, err := c.GetUser(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "invalid_token", apiErr.Code)
	assert.Equal(t, "token is expired", apiErr.Message)
}

func TestNonJSONErrorBodyKept(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	_, err := c.ListProjects(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "upstream down")
}
