// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/ratelimit"
	requestutil "github.com/taibuivan/gatekeeper/internal/platform/request"
	"github.com/taibuivan/gatekeeper/internal/platform/respond"
	"github.com/taibuivan/gatekeeper/internal/platform/validate"
)

// # Actions & States

// Action names accepted in the {action} path segment.
const (
	ActionRegister = "register"
	ActionLogin    = "login"
	ActionWhoAmI   = "@me"
)

// State is the handler an inbound (method, action) pair resolves to.
type State int

const (
	StateUnmatched State = iota
	StateRegister
	StateLogin
	StateWhoAmI
)

// String returns the metric label for the state.
func (state State) String() string {
	switch state {
	case StateRegister:
		return "register"
	case StateLogin:
		return "login"
	case StateWhoAmI:
		return "who_am_i"
	default:
		return "unmatched"
	}
}

// Resolve maps an inbound method and action to a [State].
func Resolve(method, action string) State {
	switch {
	case method == http.MethodPost && action == ActionRegister:
		return StateRegister
	case method == http.MethodPost && action == ActionLogin:
		return StateLogin
	case method == http.MethodGet && action == ActionWhoAmI:
		return StateWhoAmI
	default:
		return StateUnmatched
	}
}

// requiresBearer is true for every action except register and login.
func requiresBearer(action string) bool {
	return action != ActionRegister && action != ActionLogin
}

// consumesBody is true for the states that read a JSON body.
func (state State) consumesBody() bool {
	return state == StateRegister || state == StateLogin
}

// # Request & Response

// Request is one inbound call, independent of the HTTP library that produced it.
type Request struct {
	Method string
	Action string
	Header http.Header
	Body   []byte
	// BodyErr is set when the transport could not read Body in full.
	// It is reported only by states that consume a body.
	BodyErr   error
	ClientKey string
}

// Response is the normalized outcome of a dispatch.
type Response struct {
	Status int
	Header http.Header
	Body   any
}

// RateLimitedEnvelope is the 429 body.
type RateLimitedEnvelope struct {
	respond.ErrorEnvelope
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetAt   int64 `json:"resetAt"`
}

// # Dispatcher

// Dispatcher runs the per-request pipeline:
// rate limit, bearer requirement, body parse, handler, 404.
// Each step short-circuits on failure.
type Dispatcher struct {
	service *Service
	limiter *ratelimit.Limiter
}

// NewDispatcher wires a dispatcher. limiter may be nil to disable route limits.
func NewDispatcher(service *Service, limiter *ratelimit.Limiter) *Dispatcher {
	return &Dispatcher{service: service, limiter: limiter}
}

// Dispatch processes one request.
func (dispatcher *Dispatcher) Dispatch(ctx context.Context, request Request) Response {
	startTime := time.Now()
	state := Resolve(request.Method, request.Action)

	response := dispatcher.run(ctx, state, request)

	recordDispatch(state, response.Status, time.Since(startTime))
	return response
}

func (dispatcher *Dispatcher) run(ctx context.Context, state State, request Request) Response {
	header := http.Header{}

	// 1. Rate limit the resolved route
	if denied, limited := dispatcher.checkRateLimit(ctx, request, header); limited {
		return denied
	}

	// 2. Bearer token for anything but register/login
	var accessToken string
	if requiresBearer(request.Action) {
		token, ok := requestutil.BearerToken(request.Header)
		if !ok {
			return failure(ctx, header, apperr.Unauthorized("Missing or malformed bearer token"))
		}
		accessToken = token
	}

	// 3. Parse the body for states that consume one
	var body credentialsBody
	if state.consumesBody() {
		if request.BodyErr != nil {
			return failure(ctx, header, request.BodyErr)
		}
		parsed, err := parseCredentials(request.Body)
		if err != nil {
			return failure(ctx, header, err)
		}
		body = parsed
	}

	// 4. Dispatch to the handler
	switch state {
	case StateRegister:
		if err := (&validate.Validator{}).Present(body.Email, body.Password, body.ConfirmedPassword).Err(); err != nil {
			return failure(ctx, header, err)
		}
		session, err := dispatcher.service.Register(ctx, RegisterInput{
			Email:             *body.Email,
			Password:          *body.Password,
			ConfirmedPassword: *body.ConfirmedPassword,
		})
		if err != nil {
			return failure(ctx, header, err)
		}
		return success(header, session.Public())

	case StateLogin:
		if err := (&validate.Validator{}).Present(body.Email, body.Password).Err(); err != nil {
			return failure(ctx, header, err)
		}
		session, err := dispatcher.service.Login(ctx, LoginInput{
			Email:    *body.Email,
			Password: *body.Password,
		})
		if err != nil {
			return failure(ctx, header, err)
		}
		return success(header, session.Public())

	case StateWhoAmI:
		user, err := dispatcher.service.WhoAmI(ctx, accessToken)
		if err != nil {
			return failure(ctx, header, err)
		}
		return success(header, user.Public())
	}

	// 5. Nothing matched
	return failure(ctx, header, apperr.InvalidRoute())
}

// checkRateLimit writes X-RateLimit-* headers for limited routes and returns the
// 429 response when the request is denied. A store failure lets the request through.
func (dispatcher *Dispatcher) checkRateLimit(ctx context.Context, request Request, header http.Header) (Response, bool) {
	if dispatcher.limiter == nil {
		return Response{}, false
	}

	route := "/" + request.Action
	result, err := dispatcher.limiter.Check(ctx, request.ClientKey, route)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "rate_limit_store_failed",
			slog.String("route", route),
			slog.Any("error", err),
		)
		return Response{}, false
	}
	if !result.Limited {
		return Response{}, false
	}

	header.Set(constants.HeaderRateLimitLimit, strconv.Itoa(result.Limit))
	header.Set(constants.HeaderRateLimitLeft, strconv.Itoa(result.Remaining))
	header.Set(constants.HeaderRateLimitReset, strconv.FormatInt(result.ResetAt.Unix(), 10))

	if result.Allowed {
		return Response{}, false
	}

	retryAfter := result.RetryAfter(dispatcher.limiter.Now())
	seconds := int(retryAfter / time.Second)
	header.Set(constants.HeaderRetryAfter, strconv.Itoa(seconds))

	ctxutil.GetLogger(ctx).InfoContext(ctx, "rate_limit_denied",
		slog.String("route", route),
		slog.Time("reset_at", result.ResetAt),
	)

	appError := apperr.RateLimited(seconds)
	return Response{
		Status: appError.HTTPStatus,
		Header: header,
		Body: RateLimitedEnvelope{
			ErrorEnvelope: respond.Envelope(appError),
			Limit:         result.Limit,
			Remaining:     result.Remaining,
			ResetAt:       result.ResetAt.UnixMilli(),
		},
	}, true
}

// # Body Parsing

// credentialsBody uses pointers so that absent keys are distinguishable from "".
type credentialsBody struct {
	Email             *string `json:"email"`
	Password          *string `json:"password"`
	ConfirmedPassword *string `json:"confirmedPassword"`
}

// parseCredentials returns INVALID_PAYLOAD for an empty, non-object or malformed body.
func parseCredentials(raw []byte) (credentialsBody, error) {
	var body credentialsBody
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return body, validate.ErrInvalidJSON
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return body, validate.ErrInvalidJSON
	}
	return body, nil
}

// # Outcomes

func success(header http.Header, payload any) Response {
	return Response{Status: http.StatusOK, Header: header, Body: payload}
}

// failure converts err to its wire form. Non-AppErrors (adapter outages,
// hashing failures) are logged and hidden behind INTERNAL_ERROR.
func failure(ctx context.Context, header http.Header, err error) Response {
	appError := apperr.From(err)
	if appError.HTTPStatus >= http.StatusInternalServerError {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "adapter_failure",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
			slog.Any("cause", err),
		)
	}

	return Response{
		Status: appError.HTTPStatus,
		Header: header,
		Body:   respond.Envelope(appError),
	}
}
