// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/respond"
)

func loggedRequest(buffer *bytes.Buffer) *http.Request {
	logger := slog.New(slog.NewJSONHandler(buffer, nil))
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	return request.WithContext(ctxutil.WithLogger(request.Context(), logger))
}

func logLines(buffer *bytes.Buffer) []map[string]any {
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buffer.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err == nil {
			lines = append(lines, entry)
		}
	}
	return lines
}

/*
TestError_UnclassifiedLogsOnce hides a raw error behind INTERNAL_ERROR and
writes a single log line carrying the cause.
*/
func TestError_UnclassifiedLogsOnce(t *testing.T) {
	var buffer bytes.Buffer
	recorder := httptest.NewRecorder()

	respond.Error(recorder, loggedRequest(&buffer), errors.New("dial tcp: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	var body respond.ErrorEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, apperr.CodeInternal, body.Error)
	assert.NotContains(t, recorder.Body.String(), "connection refused")

	lines := logLines(&buffer)
	require.Len(t, lines, 1)
	assert.Equal(t, "api_server_error", lines[0]["msg"])
	assert.Equal(t, "dial tcp: connection refused", lines[0]["cause"])
}

/*
TestError_ClientErrorsAreQuiet writes 4xx envelopes without logging.
*/
func TestError_ClientErrorsAreQuiet(t *testing.T) {
	var buffer bytes.Buffer
	recorder := httptest.NewRecorder()

	respond.Error(recorder, loggedRequest(&buffer), apperr.Unauthorized("Missing or malformed bearer token"))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"UNAUTHORIZED","message":"Missing or malformed bearer token"}`, recorder.Body.String())
	assert.Empty(t, buffer.String())
}
