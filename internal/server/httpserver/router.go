package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), corsMiddleware(s.origins))

	r.GET("/healthz", func(c *gin.Context) {
		respondOK(c, http.StatusOK, gin.H{"status": "ok"})
	})

	a := r.Group("/auth")
	a.POST("/sign_up", s.signUp)
	a.POST("/verify_email", s.verifyEmail)
	a.POST("/login", s.login)
	a.POST("/refresh_token", s.refreshToken)
	a.GET("/me", s.me)

	r.NoRoute(func(c *gin.Context) {
		respondMessage(c, http.StatusNotFound, "Route not found")
	})

	return r
}
