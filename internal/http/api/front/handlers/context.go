package handlers

import "github.com/gin-gonic/gin"

// ContextCompanyID is the gin context key holding the authenticated company.
const ContextCompanyID = "companyID"

// CompanyID returns the authenticated company, or 0.
func CompanyID(c *gin.Context) uint64 {
	return c.GetUint64(ContextCompanyID)
}
