package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"latemate_console/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityRouter mounts operatorIdentity in front of an echo of the operator id.
func identityRouter(auth *mockAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := newTestHandler(&service.Service{Authorization: auth})
	r.GET("/bench", h.operatorIdentity, func(c *gin.Context) {
		id, _ := c.Get(operatorIDKey)
		c.JSON(http.StatusOK, gin.H{"operator_id": id})
	})
	return r
}

func TestOperatorIdentity_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"no header", "", "missing Authorization header"},
		{"basic scheme", "Basic YmVuY2g6cHc=", "invalid Authorization header format"},
		{"bearer without token", "Bearer", "invalid Authorization header format"},
		{"lower-case scheme", "bearer tok", "invalid Authorization header format"},
		{"token rejected", "Bearer expired", "invalid or expired token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{parseErr: service.ErrInvalidToken}
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/bench", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			identityRouter(auth).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var out map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.Equal(t, tc.wantMsg, out["error"])
		})
	}
}

func TestOperatorIdentity_SetsOperatorID(t *testing.T) {
	auth := &mockAuth{parseID: 3}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/bench", nil)
	req.Header = authHeader("tok-bench")
	identityRouter(auth).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		OperatorID int `json:"operator_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 3, out.OperatorID)
	assert.Equal(t, "tok-bench", auth.lastParseToken)
}
