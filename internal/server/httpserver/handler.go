package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/authbridge/internal/common"
	"github.com/dmitrijs2005/authbridge/internal/server/services"
)

type signUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type verifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// bind decodes the JSON body into req, answering 422 when it is invalid.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondMessage(c, http.StatusUnprocessableEntity, bindMessage(err))
		return false
	}
	return true
}

// bindMessage turns a binding error into a short client-facing message.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func (s *HTTPServer) signUp(c *gin.Context) {
	var req signUpRequest
	if !bind(c, &req) {
		return
	}

	if _, err := s.auth.SignUp(c.Request.Context(), req.Email, req.Password, req.Name); err != nil {
		s.respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, messageResponse{Message: services.MsgSignUpSuccess})
}

func (s *HTTPServer) verifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bind(c, &req) {
		return
	}

	if err := s.auth.VerifyEmail(c.Request.Context(), req.Email, req.Code); err != nil {
		s.respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, messageResponse{Message: services.MsgVerifyEmailSuccess})
}

func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}

	sess, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.setCookie(c, common.AccessTokenCookieName, sess.AccessToken)
	s.setCookie(c, common.RefreshTokenCookieName, sess.RefreshToken)
	s.setCookie(c, common.SubjectCookieName, sess.SubjectID)

	respondOK(c, http.StatusOK, messageResponse{Message: services.MsgLoginSuccess})
}

func (s *HTTPServer) refreshToken(c *gin.Context) {
	access, err := s.auth.RefreshToken(c.Request.Context(),
		cookie(c, common.RefreshTokenCookieName),
		cookie(c, common.SubjectCookieName),
		cookie(c, common.AccessTokenCookieName),
	)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.setCookie(c, common.AccessTokenCookieName, access)

	respondOK(c, http.StatusOK, messageResponse{Message: services.MsgRefreshSuccess})
}

func (s *HTTPServer) me(c *gin.Context) {
	attrs, err := s.auth.CurrentUser(c.Request.Context(), cookie(c, common.AccessTokenCookieName))
	if err != nil {
		s.respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, attrs)
}
