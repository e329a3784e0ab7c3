package api

import "errors"

var (
	ErrNotFound    = errors.New("data not found for this symbol")
	ErrRateLimited = errors.New("rate limited by API")
	ErrAuthFailed  = errors.New("authentication failed")
	ErrUpstream    = errors.New("upstream provider error")
)
