package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"filegate/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadAndServe(t *testing.T) {
	fx := newServerFixture(t, false)

	rec := fx.do(multipartUpload(t, "note.txt", []byte("hello"), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeStatus(t, rec.Body)
	assert.Equal(t, 1, res.Status)
	assert.Equal(t, "https://files.example.com/note.txt", res.URL)

	rec = fx.do(getRequest("/note.txt"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestUpload_OversizeRejected(t *testing.T) {
	fx := newServerFixture(t, false)

	rec := fx.do(multipartUpload(t, "big.bin", make([]byte, testMaxSize+1), nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	res := decodeStatus(t, rec.Body)
	assert.Equal(t, 0, res.Status)
	assert.Empty(t, fx.telegram.objects, "oversize upload must never reach the backend")
}

func TestUpload_AssignsCategoryByName(t *testing.T) {
	fx := newServerFixture(t, false)

	photos, err := fx.cats.Create("Photos")
	require.NoError(t, err)

	rec := fx.do(multipartUpload(t, "p.png", []byte("img"), map[string]string{
		"category": "Photos",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	file, err := fx.files.Resolve("p.png")
	require.NoError(t, err)
	require.NotNil(t, file.CategoryID)
	assert.Equal(t, photos.ID, *file.CategoryID)
}

func TestConfigEndpoint(t *testing.T) {
	fx := newServerFixture(t, false)

	rec := fx.do(getRequest("/config"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"maxSizeMB":0}`, rec.Body.String())
}

func TestSearch_ReturnsEscapedHTML(t *testing.T) {
	fx := newServerFixture(t, false)

	rec := fx.do(multipartUpload(t, "holiday <1>.txt", []byte("x"), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(jsonRequest(http.MethodPost, "/search", map[string]string{"query": "holiday"}))
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeStatus(t, rec.Body)
	assert.Equal(t, 1, res.Status)
	assert.Contains(t, res.HTML, "holiday &lt;1&gt;.txt")
	assert.NotContains(t, res.HTML, "<1>")
}

func TestUpdateSuffix_MovesPublicURL(t *testing.T) {
	fx := newServerFixture(t, false)

	rec := fx.do(multipartUpload(t, "old.txt", []byte("body"), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(jsonRequest(http.MethodPost, "/update-suffix", map[string]string{
		"url":    "https://files.example.com/old.txt",
		"suffix": "new",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeStatus(t, rec.Body)
	assert.Equal(t, "https://files.example.com/new.txt", res.URL)

	assert.Equal(t, http.StatusNotFound, fx.do(getRequest("/old.txt")).Code)

	rec = fx.do(getRequest("/new.txt"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body", rec.Body.String())
}

func TestDelete_SecondCallIs404(t *testing.T) {
	fx := newServerFixture(t, false)

	rec := fx.do(multipartUpload(t, "gone.txt", []byte("x"), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	file, err := fx.files.Resolve("gone.txt")
	require.NoError(t, err)

	payload := map[string]uint{"id": file.ID}
	assert.Equal(t, http.StatusOK, fx.do(jsonRequest(http.MethodPost, "/delete", payload)).Code)
	assert.Equal(t, http.StatusNotFound, fx.do(jsonRequest(http.MethodPost, "/delete", payload)).Code)
}

func TestDeleteMultiple_ReportsCounts(t *testing.T) {
	fx := newServerFixture(t, false)

	rec := fx.do(multipartUpload(t, "a.txt", []byte("x"), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(jsonRequest(http.MethodPost, "/delete-multiple", map[string][]string{
		"urls": {"https://files.example.com/a.txt", "https://files.example.com/missing.txt"},
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeStatus(t, rec.Body)
	assert.Equal(t, "1 succeeded, 1 failed", res.Msg)
}

func TestChangeCategory_Bulk(t *testing.T) {
	fx := newServerFixture(t, false)

	docs, err := fx.cats.Create("Docs")
	require.NoError(t, err)

	rec := fx.do(multipartUpload(t, "m.txt", []byte("x"), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(jsonRequest(http.MethodPost, "/change-category", map[string]any{
		"urls":       []string{"https://files.example.com/m.txt"},
		"categoryId": docs.ID,
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	file, err := fx.files.Resolve("m.txt")
	require.NoError(t, err)
	require.NotNil(t, file.CategoryID)
	assert.Equal(t, docs.ID, *file.CategoryID)
}

func TestCategoryEndpoints(t *testing.T) {
	fx := newServerFixture(t, false)

	rec := fx.do(jsonRequest(http.MethodPost, "/create-category", map[string]string{"name": "Music"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(jsonRequest(http.MethodPost, "/create-category", map[string]string{"name": "Music"}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = fx.do(getRequest("/categories"))
	require.Equal(t, http.StatusOK, rec.Code)

	var categories []model.Category
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&categories))
	assert.Len(t, categories, 2)
}

func TestServe_UnknownNameIs404(t *testing.T) {
	fx := newServerFixture(t, false)
	assert.Equal(t, http.StatusNotFound, fx.do(getRequest("/nothing-here.png")).Code)
}
