package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/authbridge/internal/server/services"
)

type meta struct {
	Status   int    `json:"status"`
	Endpoint string `json:"endpoint"`
}

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Meta    meta `json:"meta"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, successEnvelope{
		Success: true,
		Data:    data,
		Meta:    meta{Status: status, Endpoint: c.Request.URL.Path},
	})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

var kindStatus = map[services.Kind]int{
	services.KindValidation:            http.StatusUnprocessableEntity,
	services.KindAlreadyExists:         http.StatusConflict,
	services.KindNotFound:              http.StatusNotFound,
	services.KindInvalidCredentials:    http.StatusUnauthorized,
	services.KindInvalidToken:          http.StatusUnauthorized,
	services.KindProviderError:         http.StatusBadRequest,
	services.KindProviderUnavailable:   http.StatusServiceUnavailable,
	services.KindInternalInconsistency: http.StatusInternalServerError,
	services.KindConstraintViolation:   http.StatusConflict,
	services.KindInternal:              http.StatusInternalServerError,
}

const unexpectedError = "An unexpected error occurred"

// respondError writes the error envelope for err. Causes are logged, never
// sent to the client.
func (s *HTTPServer) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := unexpectedError

	var se *services.Error
	if errors.As(err, &se) {
		if st, ok := kindStatus[se.Kind]; ok {
			status = st
		}
		message = se.Message
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed",
			"request_id", c.GetString(requestIDKey), "path", c.Request.URL.Path, "error", err)
	}

	respondMessage(c, status, message)
}
