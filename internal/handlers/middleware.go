package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const operatorIDKey = "operatorId"

// operatorIdentity rejects requests without a valid bearer token.
func (h *Handler) operatorIdentity(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	operatorID, err := h.services.ParseToken(parts[1])
	if err != nil {
		h.log.Debugw("auth_token_rejected", "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(operatorIDKey, operatorID)
	c.Next()
}
