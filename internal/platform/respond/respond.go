// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses.
// Success payloads are written as-is (a stripped session or user object) and
// every failure uses the same {"error": CODE, "message": text} body, so
// clients can branch on the code without parsing prose.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
)

// ErrorEnvelope is the JSON body for error responses.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with the payload as the body.
func OK(writer http.ResponseWriter, payload any) {
	JSON(writer, http.StatusOK, payload)
}

// Error converts any Go error into a standardized JSON API error response.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	appError := Classify(request, err)
	JSON(writer, appError.HTTPStatus, Envelope(appError))
}

// Envelope builds the wire body for an [apperr.AppError].
func Envelope(appError *apperr.AppError) ErrorEnvelope {
	return ErrorEnvelope{Error: appError.Code, Message: appError.Message}
}

// Classify converts err to an [apperr.AppError] and logs server-side failures once.
// Errors that are not AppErrors become INTERNAL_ERROR with err as the cause.
func Classify(request *http.Request, err error) *apperr.AppError {
	ctx := request.Context()

	appError := apperr.From(err)
	if appError.HTTPStatus >= http.StatusInternalServerError {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
			slog.Any("cause", appError.Cause),
		)
	}

	return appError
}
