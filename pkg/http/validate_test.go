package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagingQuery struct {
	Limit int    `query:"limit" default:"25" validate:"gte=1,lte=100"`
	Sort  string `query:"sort" validate:"omitempty,oneof=asc desc"`
}

type createBody struct {
	Name  string `json:"name" validate:"required,max=8"`
	Actor string `json:"actor" default:"api"`
}

func newCtx(method, target, body string) echo.Context {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	q := &pagingQuery{}
	if verr := ReadAndValidateRequest(newCtx(http.MethodGet, "/", ""), q); verr != nil {
		t.Fatalf("unexpected errors: %+v", verr)
	}
	assert.Equal(t, 25, q.Limit)

	b := &createBody{}
	require.Nil(t, ReadAndValidateRequest(newCtx(http.MethodPost, "/", `{"name":"x"}`), b))
	assert.Equal(t, "api", b.Actor)
}

func TestReadAndValidateRequestUsesWireNames(t *testing.T) {
	verr := ReadAndValidateRequest(newCtx(http.MethodGet, "/?limit=500&sort=up", ""), &pagingQuery{})
	require.Len(t, verr, 2)
	assert.Equal(t, "limit", verr[0].Field)
	assert.Equal(t, "ERR_LTE", verr[0].Code)
	assert.Equal(t, "100", verr[0].Params["max"])
	assert.Equal(t, "sort", verr[1].Field)
	assert.Equal(t, []string{"asc", "desc"}, verr[1].Params["options"])

	verr = ReadAndValidateRequest(newCtx(http.MethodPost, "/", `{"name":"much-too-long"}`), &createBody{})
	require.Len(t, verr, 1)
	assert.Equal(t, "name", verr[0].Field)
	assert.Equal(t, "name must be at most 8 characters", verr[0].Message)
}

func TestReadAndValidateRequestMalformedBody(t *testing.T) {
	verr := ReadAndValidateRequest(newCtx(http.MethodPost, "/", `{"name":`), &createBody{})
	require.Len(t, verr, 1)
	assert.Equal(t, "ERR_MALFORMED_BODY", verr[0].Code)
}
