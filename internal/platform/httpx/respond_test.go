package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	Success(rr, http.StatusCreated, map[string]string{"id": "1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.JSONEq(t, `{"success":true,"data":{"id":"1"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	Fail(rr, http.StatusNotFound, "")
	require.JSONEq(t, `{"success":false,"message":"Not Found"}`, rr.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"cash"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	require.Equal(t, "cash", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	require.ErrorIs(t, DecodeJSON(req, &dst), ErrEmptyBody)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))
	require.ErrorIs(t, DecodeJSON(req, &dst), ErrMalformedBody)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))
	require.ErrorIs(t, DecodeJSON(req, &dst), ErrMalformedBody)
}
