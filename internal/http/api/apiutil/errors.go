// Package apiutil holds helpers shared by the front, admin and gateway routes.
package apiutil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/billing"
	log "github.com/sirupsen/logrus"
)

// StatusFor maps an error onto an HTTP status.
func StatusFor(err error) int {
	switch billing.KindOf(err) {
	case billing.KindNotFound:
		return http.StatusNotFound
	case billing.KindForbidden:
		return http.StatusForbidden
	case billing.KindConflict:
		return http.StatusConflict
	case billing.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text for err. Unexpected faults are not
// echoed to clients.
func Message(err error) string {
	var domainErr *billing.Error
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return "internal error"
}

// WriteError writes err as {"error": "..."} with the mapped status.
func WriteError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": Message(err)})
}
