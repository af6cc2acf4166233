package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the authenticated caller of a request
type UserContext struct {
	AccountID  uint `json:"account_id"`
	IsLoggedIn bool `json:"is_logged_in"`
}

// Set stores the user context on the request.
func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
	c.Locals(KeyAccountID, uc.AccountID)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if uc, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return uc
	}
	return UserContext{}
}

// IsLoggedIn checks if the current caller presented a valid access token
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetAccountID returns the caller's account ID, or 0 if anonymous
func GetAccountID(c *fiber.Ctx) uint {
	return GetUserContext(c).AccountID
}
