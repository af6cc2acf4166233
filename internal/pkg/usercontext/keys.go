package usercontext

// Locals keys shared by middleware and controllers
const (
	KeyUserContext = "USER_CONTEXT"
	KeyAccountID   = "account_id"
)
