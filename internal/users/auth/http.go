// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/gatekeeper/internal/platform/middleware"
	requestutil "github.com/taibuivan/gatekeeper/internal/platform/request"
	"github.com/taibuivan/gatekeeper/internal/platform/respond"
)

// # Definitions & Constructors

// Handler binds the [Dispatcher] to every method and path under its mount point.
//
// # Scope
//
// This layer is strictly responsible for transport concerns: reading the body,
// identifying the client, and writing the dispatcher's response.
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler constructs a new [Handler] with its dispatcher dependency.
func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// Routes returns a [chi.Router] configured with the auth endpoint.
//
// # Endpoints
//   - POST /register : Creates a new account and session.
//   - POST /login    : Authenticates and returns a session.
//   - GET  /@me      : Returns the user owning the bearer token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Unbound methods and nested paths run the same pipeline and end as INVALID_ROUTE.
	router.HandleFunc("/*", handler.serve)

	return router
}

/*
serve adapts an HTTP request to a dispatcher [Request].

Response:
  - 200: PublicSession | PublicUser
  - 400: INVALID_PAYLOAD, INVALID_EMAIL, PASSWORD_*, EMAIL_TAKEN, USER_NOT_FOUND, INVALID_PASSWORD
  - 401: UNAUTHORIZED
  - 404: INVALID_ROUTE
  - 429: RATE_LIMITED
  - 500: INTERNAL_ERROR
*/
func (handler *Handler) serve(writer http.ResponseWriter, request *http.Request) {
	action := requestutil.Param(request, "*")

	// Read failures surface at the body-parse step, after rate limit and bearer checks
	var body []byte
	var bodyErr error
	if Resolve(request.Method, action).consumesBody() {
		body, bodyErr = requestutil.ReadBody(writer, request)
	}

	response := handler.dispatcher.Dispatch(request.Context(), Request{
		Method:    request.Method,
		Action:    action,
		Header:    request.Header,
		Body:      body,
		BodyErr:   bodyErr,
		ClientKey: middleware.ClientKey(request),
	})

	for key, values := range response.Header {
		for _, value := range values {
			writer.Header().Add(key, value)
		}
	}
	respond.JSON(writer, response.Status, response.Body)
}
