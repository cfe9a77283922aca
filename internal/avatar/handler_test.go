package avatar

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/user/entity"
)

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func serve(h *Handler, u *entity.User, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPatch, "/api/avatars", body)
	req.Header.Set("Content-Type", contentType)
	if u != nil {
		req = req.WithContext(auth.WithUser(req.Context(), u))
	}
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	return rec
}

func TestUpdateHandler(t *testing.T) {
	s, _, _, _ := newTestService(t)
	h := NewHandler(s, zap.NewNop().Sugar())
	me := &entity.User{ID: 4, Email: "u@x.com"}

	t.Run("ok", func(t *testing.T) {
		body, ct := multipartBody(t, "avatar", "me.png", pngBytes(t, 300, 300))
		rec := serve(h, me, body, ct)
		require.Equal(t, http.StatusOK, rec.Code)

		var out map[string]map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, "/avatars/avatar-1700000000000-K1.png", out["updatedUser"]["avatarURL"])
		assert.NotContains(t, out["updatedUser"], "passwordHash")
	})

	t.Run("missing file", func(t *testing.T) {
		body, ct := multipartBody(t, "", "", nil)
		rec := serve(h, me, body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message":"Missing file 'avatar'"}`, rec.Body.String())
	})

	t.Run("not an image", func(t *testing.T) {
		s.suffix = func() string { return "K2" }
		body, ct := multipartBody(t, "avatar", "me.png", []byte("plain text"))
		rec := serve(h, me, body, ct)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"message":"Error while updating avatar"}`, rec.Body.String())
	})

	t.Run("truncated png", func(t *testing.T) {
		s.suffix = func() string { return "K3" }
		full := pngBytes(t, 64, 64)
		body, ct := multipartBody(t, "avatar", "me.png", full[:len(full)/2])
		rec := serve(h, me, body, ct)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"message":"Error while updating avatar"}`, rec.Body.String())
	})

	t.Run("too large", func(t *testing.T) {
		body, ct := multipartBody(t, "avatar", "big.png", bytes.Repeat([]byte{0}, maxUploadBytes+1))
		rec := serve(h, me, body, ct)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("no user", func(t *testing.T) {
		body, ct := multipartBody(t, "avatar", "me.png", pngBytes(t, 8, 8))
		rec := serve(h, nil, body, ct)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
