package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "devmatch context key " + string(c)
}

const (
	// UserIDKey holds the authenticated user's ID.
	UserIDKey = contextKey("userID")
	// RequestIDKey holds the per-request correlation ID.
	RequestIDKey = contextKey("requestID")
	// OperationKey names the handler operation for log enrichment.
	OperationKey = contextKey("operation")
)
