package contact

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*httptest.Server, *memRepo) {
	t.Helper()
	svc, repo := newTestService()
	h := NewHandler(svc, zap.NewNop().Sugar())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/contacts", h.List)
	mux.HandleFunc("GET /api/contacts/{id}", h.Get)
	mux.HandleFunc("POST /api/contacts", h.Add)
	mux.HandleFunc("DELETE /api/contacts/{id}", h.Delete)
	mux.HandleFunc("PUT /api/contacts/{id}", h.Update)
	mux.HandleFunc("PATCH /api/contacts/{id}/favorite", h.UpdateFavorite)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, repo
}

func call(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

const ann = `{"name":"Ann","email":"a@x.com","phone":"1234567890","favorite":false}`

func TestContactLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := call(t, srv, http.MethodPost, "/api/contacts", ann)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Contact added!", body["message"])
	created := body["contact"].(map[string]any)
	id := created["id"].(string)
	require.NotEmpty(t, id)

	status, body = call(t, srv, http.MethodGet, "/api/contacts/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created, body["contact"])

	status, body = call(t, srv, http.MethodPatch, "/api/contacts/"+id+"/favorite", `{"favorite":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["contact"].(map[string]any)["favorite"])

	status, body = call(t, srv, http.MethodDelete, "/api/contacts/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Contact removed!", body["message"])

	status, body = call(t, srv, http.MethodGet, "/api/contacts/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Contact not found", body["message"])

	status, _ = call(t, srv, http.MethodDelete, "/api/contacts/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdd_Validation(t *testing.T) {
	srv, repo := newTestServer(t)

	cases := map[string]string{
		"empty body":       ``,
		"malformed":        `{"name":`,
		"missing name":     `{"email":"a@x.com","phone":"1234567890","favorite":false}`,
		"bad email":        `{"name":"Ann","email":"nope","phone":"1234567890","favorite":false}`,
		"short phone":      `{"name":"Ann","email":"a@x.com","phone":"12345","favorite":false}`,
		"non-digit phone":  `{"name":"Ann","email":"a@x.com","phone":"12345abcde","favorite":false}`,
		"missing favorite": `{"name":"Ann","email":"a@x.com","phone":"1234567890"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			status, _ := call(t, srv, http.MethodPost, "/api/contacts", body)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
	assert.Empty(t, repo.rows)
}

func TestUpdateFavorite_RequiresField(t *testing.T) {
	srv, _ := newTestServer(t)
	_, body := call(t, srv, http.MethodPost, "/api/contacts", strings.Replace(ann, "false", "true", 1))
	id := body["contact"].(map[string]any)["id"].(string)

	status, body := call(t, srv, http.MethodPatch, "/api/contacts/"+id+"/favorite", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing field 'favorite'", body["message"])

	status, body = call(t, srv, http.MethodPatch, "/api/contacts/"+id+"/favorite", `{"favorite":false}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["contact"].(map[string]any)["favorite"])

	status, _ = call(t, srv, http.MethodPatch, "/api/contacts/missing/favorite", `{"favorite":true}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUpdate(t *testing.T) {
	srv, _ := newTestServer(t)
	_, body := call(t, srv, http.MethodPost, "/api/contacts", ann)
	id := body["contact"].(map[string]any)["id"].(string)

	status, body := call(t, srv, http.MethodPut, "/api/contacts/"+id, `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "missing fields", body["message"])

	status, _ = call(t, srv, http.MethodPut, "/api/contacts/"+id, `{"phone":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, srv, http.MethodPut, "/api/contacts/"+id, `{"name":"Anna"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Contact updated!", body["message"])
	c := body["contact"].(map[string]any)
	assert.Equal(t, "Anna", c["name"])
	assert.Equal(t, "a@x.com", c["email"])

	status, _ = call(t, srv, http.MethodPut, "/api/contacts/missing", `{"name":"X"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestList(t *testing.T) {
	srv, _ := newTestServer(t)
	call(t, srv, http.MethodPost, "/api/contacts", ann)
	call(t, srv, http.MethodPost, "/api/contacts", `{"name":"Bob","email":"b@x.com","phone":"0987654321","favorite":true}`)
	call(t, srv, http.MethodPost, "/api/contacts", `{"name":"Cy","email":"c@x.com","phone":"1112223333","favorite":false}`)

	status, body := call(t, srv, http.MethodGet, "/api/contacts", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["contacts"], 3)

	_, body = call(t, srv, http.MethodGet, "/api/contacts?favorite=true", "")
	list := body["contacts"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Bob", list[0].(map[string]any)["name"])

	_, body = call(t, srv, http.MethodGet, "/api/contacts?limit=2&page=2", "")
	list = body["contacts"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Cy", list[0].(map[string]any)["name"])

	for _, q := range []string{"limit=0", "limit=x", "page=0", "favorite=maybe"} {
		status, _ := call(t, srv, http.MethodGet, "/api/contacts?"+q, "")
		assert.Equal(t, http.StatusBadRequest, status, q)
	}
}

func TestRepoFailureIs500(t *testing.T) {
	srv, repo := newTestServer(t)
	repo.err = errors.New("db down")

	status, body := call(t, srv, http.MethodGet, "/api/contacts/x", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Something went wrong", body["message"])

	status, body = call(t, srv, http.MethodPost, "/api/contacts", ann)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "An error occurred while adding a contact", body["message"])
}

func TestList_WithoutPagingReturnsEveryContact(t *testing.T) {
	srv, _ := newTestServer(t)
	const n = DefaultLimit + 5
	for i := 0; i < n; i++ {
		status, _ := call(t, srv, http.MethodPost, "/api/contacts",
			fmt.Sprintf(`{"name":"C%d","email":"c%d@x.com","phone":"12345678%02d","favorite":false}`, i, i, i))
		require.Equal(t, http.StatusOK, status)
	}

	status, body := call(t, srv, http.MethodGet, "/api/contacts", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["contacts"], n)

	// page alone falls back to the default page size
	_, body = call(t, srv, http.MethodGet, "/api/contacts?page=2", "")
	assert.Len(t, body["contacts"], n-DefaultLimit)
}

func TestList_PageOutOfRange(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := call(t, srv, http.MethodGet, fmt.Sprintf("/api/contacts?page=%d", math.MaxInt), "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "page is out of range", body["message"])

	status, _ = call(t, srv, http.MethodGet, fmt.Sprintf("/api/contacts?page=%d&limit=1", math.MaxInt/MaxLimit), "")
	assert.Equal(t, http.StatusOK, status)
}
