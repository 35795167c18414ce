package errors

// Category names the broad class of an operation failure.
// Categories are string-based for debuggability and natural JSON serialization.
type Category string

const (
	// CategoryInvalidInput indicates the request could not be constructed from the given input.
	CategoryInvalidInput Category = "INVALID_INPUT"

	// CategoryDomain indicates the service answered with a recognised, operation-specific failure.
	CategoryDomain Category = "DOMAIN"

	// CategoryNetwork indicates the exchange failed in the transport or the service
	// answered with a failure that could not be classified.
	CategoryNetwork Category = "NETWORK_ERROR"

	// CategoryInternal indicates a successful response could not be interpreted.
	CategoryInternal Category = "INTERNAL_ERROR"

	// CategoryUnknown is reported for errors that did not originate from an operation.
	CategoryUnknown Category = "UNKNOWN"
)
