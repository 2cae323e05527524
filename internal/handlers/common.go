package handlers

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

// Link is a hypermedia affordance attached to responses. Purely additive;
// nothing in the domain layer consults these.
type Link struct {
	Href   string `json:"href"`
	Method string `json:"method,omitempty"`
}

type Links map[string]Link

const (
	userCacheTTL  = 60 * time.Second
	groupCacheTTL = 30 * time.Second
)
