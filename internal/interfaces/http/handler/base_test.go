package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shipment"
	"github.com/supplytrace/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext(path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		kind   string
		reason string
	}{
		{"not found", shipment.ErrShipmentNotFound, http.StatusNotFound, "SHIPMENT_NOT_FOUND", "NOT_FOUND", ""},
		{"wrapped state", fmt.Errorf("start: %w", shipment.ErrShipmentNotInTransit), http.StatusConflict, "SHIPMENT_NOT_IN_TRANSIT", "STATE", ""},
		{"validation", shared.ErrInvalidInput.WithMessage("quantity must be positive"), http.StatusBadRequest, "INVALID_INPUT", "VALIDATION", ""},
		{"narrowed validation", shipment.ErrInvalidParty, http.StatusBadRequest, "INVALID_INPUT", "VALIDATION", "INVALID_PARTY"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext("/")
			h := &BaseHandler{}
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.kind, resp.Error.Kind)
			assert.Equal(t, tt.reason, resp.Error.Reason)
		})
	}
}

func TestHandleError_HidesUnknownCause(t *testing.T) {
	c, w := testContext("/")
	(&BaseHandler{}).HandleError(c, errors.New("dial tcp 10.0.0.3:5432: refused"))

	assert.NotContains(t, w.Body.String(), "10.0.0.3")
	assert.Len(t, c.Errors, 1)
}

func TestUintParam(t *testing.T) {
	for _, tt := range []struct {
		raw string
		ok  bool
	}{
		{"12", true},
		{"0", false},
		{"-1", false},
		{"abc", false},
	} {
		c, w := testContext("/")
		c.Params = gin.Params{{Key: "id", Value: tt.raw}}

		v, ok := (&BaseHandler{}).uintParam(c, "id")
		assert.Equal(t, tt.ok, ok, tt.raw)
		if tt.ok {
			assert.Equal(t, uint64(12), v)
		} else {
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
	}
}

func TestCaller_RequiresAccount(t *testing.T) {
	c, w := testContext("/")
	_, ok := (&BaseHandler{}).caller(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
