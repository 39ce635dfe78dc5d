package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, r http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestProfileFlatAndNestedShapes(t *testing.T) {
	bodies := map[string]string{
		"flat":          `{"role":"2"}`,
		"nested":        `{"rol":{"codrol":"3"}}`,
		"numeric":       `{"rol":{"codrol":1}}`,
		"flat wins":     `{"role":"1","rol":{"codrol":"3"}}`,
		"empty flat":    `{"role":"","rol":{"codrol":"2"}}`,
		"no role shape": `{"email":"a@b.c"}`,
	}
	want := map[string]string{
		"flat": "2", "nested": "3", "numeric": "1", "flat wins": "1", "empty flat": "2",
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/user/profile", func(w http.ResponseWriter, req *http.Request) {
				assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
				assert.NotEmpty(t, req.Header.Get(RequestIDHeader))
				_, _ = io.WriteString(w, body)
			})
			c := newTestClient(t, r)

			p, err := c.Profile(context.Background(), "tok")
			if code, ok := want[name]; ok {
				require.NoError(t, err)
				assert.Equal(t, code, p.RoleCode)
				return
			}
			assert.ErrorIs(t, err, ErrRoleUnrecognized)
		})
	}
}

func TestProfileAuthFailure(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		r := chi.NewRouter()
		r.Get("/api/user/profile", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, status, map[string]string{"message": "token revoked"})
		})
		c := newTestClient(t, r)

		_, err := c.Profile(context.Background(), "tok")
		require.Error(t, err)
		assert.True(t, IsAuthError(err))
		assert.Equal(t, status, StatusCode(err))
		assert.Contains(t, err.Error(), "token revoked")
	}
}

func TestServerErrorIsNotAuth(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/agent/chat", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, r)

	_, err := c.Chat(context.Background(), "tok", ChatRequest{AgentID: "0", Message: "hola"})
	require.Error(t, err)
	assert.False(t, IsAuthError(err))
	assert.Equal(t, "agent chat: 502 - Bad Gateway", err.Error())
}

func TestChatSendsAttachments(t *testing.T) {
	var got ChatRequest
	r := chi.NewRouter()
	r.Put("/agent/chat", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]string{"response": "Entendido."})
	})
	c := newTestClient(t, r)

	resp, err := c.Chat(context.Background(), "tok", ChatRequest{
		AgentID:     "0",
		Message:     "ver adjunto",
		Attachments: []ChatAttachment{{Name: "red.pdf", Extension: "pdf", URL: "https://cdn/red.pdf"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Entendido.", resp.Response)
	assert.Equal(t, "0", got.AgentID)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "https://cdn/red.pdf", got.Attachments[0].URL)
}

func TestChatOmitsEmptyAttachments(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/agent/chat", func(w http.ResponseWriter, req *http.Request) {
		raw, _ := io.ReadAll(req.Body)
		assert.NotContains(t, string(raw), "adjuntos")
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	c := newTestClient(t, r)

	resp, err := c.Chat(context.Background(), "tok", ChatRequest{AgentID: "0", Message: "hola"})
	require.NoError(t, err)
	assert.Empty(t, resp.Response)
}

func TestGenerateUploadURLRequiresBothFields(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/storage/generate-upload-url", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "red.pdf", body["file_name"])
		assert.Equal(t, "application/pdf", body["content_type"])
		writeJSON(w, http.StatusOK, map[string]string{"signedUrl": "https://storage/put"})
	})
	c := newTestClient(t, r)

	_, err := c.GenerateUploadURL(context.Background(), "tok", "red.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestUpload(t *testing.T) {
	var gotType, gotBody string
	r := chi.NewRouter()
	r.Put("/bucket/red.pdf", func(w http.ResponseWriter, req *http.Request) {
		assert.Empty(t, req.Header.Get("Authorization"))
		gotType = req.Header.Get("Content-Type")
		raw, _ := io.ReadAll(req.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusOK)
	})
	r.Put("/bucket/denied.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()
	c := New("http://unused", 5*time.Second, nil)

	err := c.Upload(context.Background(), srv.URL+"/bucket/red.pdf", "application/pdf", strings.NewReader("%PDF"), 4)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "%PDF", gotBody)

	err = c.Upload(context.Background(), srv.URL+"/bucket/denied.pdf", "application/pdf", strings.NewReader("x"), 1)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))

	err = c.Upload(context.Background(), "not a url", "application/pdf", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestUserManagement(t *testing.T) {
	var updates []map[string]string
	var deleted string
	r := chi.NewRouter()
	r.Get("/management/user/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"users":[
			{"idusuario":7,"email":"ana@tecem.mx","rol":{"codrol":"2","rol":"Profesional"},"estado":"A","fecregistro":"2025-06-01"},
			{"idusuario":"u-9","email":"luis@tecem.mx","rol":{"codrol":"1"},"estado":"I","fecregistro":"2025-06-02"}
		]}`)
	})
	r.Put("/management/user/{id}", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		body["id"] = chi.URLParam(req, "id")
		updates = append(updates, body)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Delete("/management/user/{id}", func(w http.ResponseWriter, req *http.Request) {
		deleted = chi.URLParam(req, "id")
		writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	users, err := c.ListUsers(ctx, "")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, Code("7"), users[0].ID)
	assert.Equal(t, Code("2"), users[0].Rol.Code)
	assert.Equal(t, "Profesional", users[0].Rol.Name)
	assert.Equal(t, "I", users[1].Status)

	require.NoError(t, c.UpdateUserRole(ctx, "", "7", "3"))
	require.NoError(t, c.UpdateUserStatus(ctx, "", "u-9", "A"))
	require.NoError(t, c.DeleteUser(ctx, "", "7"))

	require.Len(t, updates, 2)
	assert.Equal(t, map[string]string{"id": "7", "role": "3"}, updates[0])
	assert.Equal(t, map[string]string{"id": "u-9", "status": "A"}, updates[1])
	assert.Equal(t, "7", deleted)
}

func TestGoogleToken(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/auth/google/token", func(w http.ResponseWriter, req *http.Request) {
		assert.Empty(t, req.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "google-jwt", body["googleToken"])
		_, _ = io.WriteString(w, `{"token":"app-token","role":2}`)
	})
	c := newTestClient(t, r)

	resp, err := c.GoogleToken(context.Background(), "google-jwt")
	require.NoError(t, err)
	assert.Equal(t, "app-token", resp.Token)
	assert.Equal(t, Code("2"), resp.Role)
}

func TestEmptySuccessBodyIsInvalid(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/user/profile", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c := newTestClient(t, r)

	_, err := c.Profile(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
