package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the envelope for every non-list reply.
type Body struct {
	Message string `json:"message"`
}

// OK sends a 200 response with data encoded as-is. Slices are not wrapped.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Message sends a 200 response carrying only a message.
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Body{Message: message})
}

// Status sends an arbitrary status with a message body and aborts the chain.
func Status(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Body{Message: message})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Status(c, http.StatusBadRequest, message)
}

// Conflict sends a 409 error response.
func Conflict(c *gin.Context, message string) {
	Status(c, http.StatusConflict, message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	Status(c, http.StatusNotFound, "Not Found")
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	Status(c, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// TooManyRequests sends a 429 error response.
func TooManyRequests(c *gin.Context) {
	Status(c, http.StatusTooManyRequests, "Too many requests")
}

// InternalError sends a 500 with a fixed message. The cause is attached to
// the gin context for the request logger and never reaches the client.
func InternalError(c *gin.Context, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	Status(c, http.StatusInternalServerError, message)
}

// ServiceUnavailable sends a 503 with an arbitrary payload.
func ServiceUnavailable(c *gin.Context, data interface{}) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, data)
}
