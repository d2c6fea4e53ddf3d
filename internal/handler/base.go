package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/patientiq/dashboard-api/pkg/httputil"
	"github.com/patientiq/dashboard-api/pkg/validator"
)

// BindJSON decodes the request body into v and answers 400 on failure.
// An empty body is accepted when allowEmpty is set, leaving v untouched.
func BindJSON(c *gin.Context, v interface{}, allowEmpty bool) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}
	if allowEmpty && errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httputil.RespondWithDetail(c, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	if fields := validator.MissingFields(err); len(fields) > 0 {
		httputil.RespondWithDetail(c, http.StatusBadRequest, "Missing required fields: "+strings.Join(fields, ", "))
		return false
	}
	httputil.RespondWithDetail(c, http.StatusBadRequest, "Invalid request body: "+validator.Describe(err))
	return false
}

// IntQuery reads an integer query parameter. Missing or malformed values
// yield def.
func IntQuery(c *gin.Context, name string, def int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// Param returns a trimmed route parameter.
func Param(c *gin.Context, name string) string {
	return strings.TrimSpace(c.Param(name))
}
