package foxess

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_Errors(t *testing.T) {
	tests := map[string]struct {
		handler http.HandlerFunc
		wantErr error
	}{
		"server error": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr: ErrTransport,
		},
		"not json": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
			wantErr: ErrMalformedResponse,
		},
		"null result": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"errno":0,"msg":"success","result":null}`))
			},
			wantErr: ErrMalformedResponse,
		},
		"wrong result shape": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"errno":0,"msg":"success","result":[1,2,3]}`))
			},
			wantErr: ErrMalformedResponse,
		},
		"business error": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeErrno(t, w, 40257)
			},
			wantErr: ErrAPI,
		},
		"rate limited": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeErrno(t, w, ErrnoRateLimited)
			},
			wantErr: ErrTransport,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			var dest addressBookResult
			err := newTestTransport(srv).call(context.Background(), http.MethodGet, "/x", nil, nil, &dest)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTransport_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	tr := newTestTransport(srv)
	srv.Close()

	err := tr.call(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestTransport_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/op/v0/x", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("a"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "en", r.Header.Get("lang"))
		assert.Equal(t, "v", r.Header.Get("x-extra"))
		assert.Equal(t, "b", decodeBody(t, r)["k"])
		writeResult(t, w, map[string]string{"token": "t"})
	}))
	defer srv.Close()

	var res loginResult
	err := newTestTransport(srv).call(context.Background(), http.MethodPost, "/op/v0/x",
		map[string][]string{"a": {"1"}}, map[string]string{"k": "b"}, &res, withHeader("x-extra", "v"))
	require.NoError(t, err)
	assert.Equal(t, "t", res.Token)
}

func TestAPIError_Unwrap(t *testing.T) {
	assert.ErrorIs(t, &APIError{Errno: ErrnoBadCredentials}, ErrAuth)
	assert.ErrorIs(t, &APIError{Errno: ErrnoTokenExpired}, ErrTokenExpired)
	assert.ErrorIs(t, &APIError{Errno: ErrnoTokenInvalid}, ErrTokenExpired)
	assert.ErrorIs(t, &APIError{Errno: ErrnoRateLimited}, ErrTransport)
	assert.ErrorIs(t, &APIError{Errno: 1}, ErrAPI)
	assert.Equal(t, "/p: errno 1: boom", (&APIError{Path: "/p", Errno: 1, Msg: "boom"}).Error())
}
