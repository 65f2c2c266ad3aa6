//go:build dev

package handler

import "github.com/gin-gonic/gin"

// bodyCredential lets local tooling without a cookie jar pass the session
// credential in the request body. Compiled only into dev builds.
func bodyCredential(c *gin.Context) string {
	var req struct {
		SessionCookie string `json:"sessionCookie"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return req.SessionCookie
}
