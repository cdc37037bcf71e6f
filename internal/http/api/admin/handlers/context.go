package handlers

// Context keys set by the admin auth middleware.
const (
	ContextAdminID       = "adminID"
	ContextAdminUsername = "adminUsername"
)
