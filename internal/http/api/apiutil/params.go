package apiutil

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ParseID parses a positive uint64 path parameter.
func ParseID(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// Page reads limit and offset query parameters. Missing or malformed values
// yield zero so the store applies its defaults.
func Page(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	offset, _ := strconv.Atoi(strings.TrimSpace(c.Query("offset")))
	return limit, offset
}
