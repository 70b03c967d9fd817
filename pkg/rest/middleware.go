/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	reqContext "context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
)

// RequestIDHeader carries the ID correlating a response with the gateway's log lines
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// withRequestID keeps a valid incoming request ID and mints one otherwise
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		r.Header.Set(RequestIDHeader, id)
		w.Header().Set(RequestIDHeader, id)

		next.ServeHTTP(w, r.WithContext(reqContext.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return r.Header.Get(RequestIDHeader)
}

func accessLog(_ io.Writer, params handlers.LogFormatterParams) {
	logger.Infof("[%s] %s %s %d %d", params.Request.Header.Get(RequestIDHeader), params.Request.Method, params.URL.RequestURI(), params.StatusCode, params.Size)
}
