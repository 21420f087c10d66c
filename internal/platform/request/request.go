// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/validate"
)

/*
ReadBody drains the request body, capped at [constants.MaxRequestBodyBytes].

An absent body yields nil with no error; decoding is left to the consumer.
*/
func ReadBody(writer http.ResponseWriter, request *http.Request) ([]byte, error) {
	if request.Body == nil || request.Body == http.NoBody {
		return nil, nil
	}
	limited := http.MaxBytesReader(writer, request.Body, constants.MaxRequestBodyBytes)
	defer limited.Close()

	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, validate.ErrInvalidJSON
	}
	return bytes.TrimSpace(body), nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
BearerToken extracts the token from an "Authorization: Bearer <token>" header.

Returns:
  - string: the token, empty when the header is absent or malformed
  - bool: whether a well-formed bearer token was found
*/
func BearerToken(header http.Header) (string, bool) {
	value := header.Get(constants.HeaderAuthorization)
	if len(value) < len(constants.BearerPrefix) || !strings.EqualFold(value[:len(constants.BearerPrefix)], constants.BearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(value[len(constants.BearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
