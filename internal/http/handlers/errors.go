// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Generic codes mirror HTTP status semantics, the rest name
// the warehouse operation that failed.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "channel_not_found",
//	  "message": "channel has no loaded messages"
//	}
package handlers

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeInternal    = "internal_error"

	// Domain-specific:
	ErrCodeChannelNotFound  = "channel_not_found"
	ErrCodeInvalidQuery     = "invalid_query"
	ErrCodeInvalidLoad      = "invalid_load_request"
	ErrCodeLoadPathNotFound = "load_path_not_found"
	ErrCodeLoadFailed       = "load_failed"
	ErrCodeQueryFailed      = "query_failed"
	ErrCodeLakeUnavailable  = "lake_unavailable"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
