// Package handlers maps HTTP requests onto service actions.
package handlers

import (
	"net/http"
	"strconv"

	"example.com/connectsphere/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var statusByKind = map[services.Kind]int{
	services.KindNotFound:     http.StatusNotFound,
	services.KindUnauthorized: http.StatusUnauthorized,
	services.KindForbidden:    http.StatusForbidden,
	services.KindConflict:     http.StatusConflict,
	services.KindValidation:   http.StatusBadRequest,
}

// respondError writes err with the status of its kind. Internal errors are
// logged and their detail withheld.
func respondError(c *gin.Context, err error) {
	status, ok := statusByKind[services.KindOf(err)]
	if !ok {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": services.MessageOf(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// paramID parses a uuid path parameter, answering 400 when it is malformed
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return n, true
}

// bindJSON decodes the body into dest, answering 400 on malformed input
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		badRequest(c, "Invalid request body")
		return false
	}
	return true
}
