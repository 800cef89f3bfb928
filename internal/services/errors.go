// Package services defines the query and load use-cases of the warehouse.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into HTTP status codes is performed at the handler layer.
package services

import "errors"

var (
	// ErrChannelNotFound indicates that no message of the requested channel
	// has been loaded.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrEmptyQuery is returned when a search is requested without keywords.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrQueryTooLong is returned when the search query exceeds the
	// configured rune limit.
	ErrQueryTooLong = errors.New("query too long")

	// ErrInvalidLoadRequest is returned when a load request does not name
	// exactly one source, or names a source outside the lake.
	ErrInvalidLoadRequest = errors.New("invalid load request")

	// ErrLoadRunNotFound indicates that the requested load run does not exist.
	ErrLoadRunNotFound = errors.New("load run not found")
)
