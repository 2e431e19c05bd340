package testutil

import (
	"net/http"

	"civicledger/pkg/domain"
	"civicledger/pkg/requestcontext"
)

// WithCaller attaches an authenticated caller to the request, the way the
// session middleware does after validating a token.
func WithCaller(req *http.Request, caller domain.Address) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithBearer sets the Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
