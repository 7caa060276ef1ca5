package router

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(body string) HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(body))
	}
}

func do(r *Router, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouter_Dispatch(t *testing.T) {
	r := New(nil)
	r.GET("/api/v1/exports", text("list"))
	r.POST("/api/v1/exports", text("create"))
	r.GET("/api/v1/exports/*/files", text("files"))
	r.GET("/api/v1/exports/*", text("one"))
	r.Handle("/swagger/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("docs"))
	}))

	tests := []struct {
		method, path string
		status       int
		body         string
	}{
		{http.MethodGet, "/api/v1/exports", http.StatusOK, "list"},
		{http.MethodPost, "/api/v1/exports", http.StatusOK, "create"},
		{http.MethodGet, "/api/v1/exports/abc", http.StatusOK, "one"},
		{http.MethodGet, "/api/v1/exports/abc/files", http.StatusOK, "files"},
		{http.MethodGet, "/swagger/index.html", http.StatusOK, "docs"},
		{http.MethodDelete, "/api/v1/exports", http.StatusMethodNotAllowed, "Method Not Allowed\n"},
		{http.MethodPost, "/api/v1/exports/abc", http.StatusMethodNotAllowed, "Method Not Allowed\n"},
		{http.MethodGet, "/api/v2/unknown", http.StatusNotFound, "Not Found\n"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(r, tt.method, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestRouter_Observer(t *testing.T) {
	r := New(nil)
	r.GET("/items/*", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	type call struct {
		method, route string
		status        int
	}
	var calls []call
	r.Observe(func(method, route string, status int, _ time.Duration) {
		calls = append(calls, call{method, route, status})
	})

	do(r, http.MethodGet, "/items/7")
	do(r, http.MethodGet, "/nothing")
	assert.Equal(t, []call{
		{http.MethodGet, "/items/*", http.StatusTeapot},
		{http.MethodGet, "unmatched", http.StatusNotFound},
	}, calls)
}

func TestMatchWildcardRoute(t *testing.T) {
	tests := []struct {
		path, pattern string
		want          bool
	}{
		{"/api/v1/exports/abc", "/api/v1/exports/*", true},
		{"/api/v1/exports/abc/def", "/api/v1/exports/*", true},
		{"/api/v1/exports", "/api/v1/exports/*", false},
		{"/api/v1/exports/", "/api/v1/exports/*", false},
		{"/a/x/c", "/a/*/c", true},
		{"/a/x/d", "/a/*/c", false},
		{"/a/x", "/a/*/c", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchWildcardRoute(tt.path, tt.pattern), "%s ~ %s", tt.path, tt.pattern)
	}
}

func TestRouter_Registry(t *testing.T) {
	r := New(nil)
	r.PUT("/x", text("put"))
	r.PATCH("/x", text("patch"))
	r.DELETE("/x", text("delete"))

	assert.Len(t, r.Routes(), 3)
	assert.True(t, r.Paths()["/x"])
	assert.Equal(t, "patch", do(r, http.MethodPatch, "/x").Body.String())
}

func TestRouter_StartAndShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	r := New(nil)
	r.GET("/ping", text("pong"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx, ServerOptions{Addr: addr, ShutdownTimeout: time.Second}) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
