package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/api"
)

func TestServer_ShutdownStopsListener(t *testing.T) {
	srv := api.NewServer("127.0.0.1:0", http.NotFoundHandler())

	served := make(chan error, 1)
	go func() { served <- srv.ListenAndServe() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-served:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after Shutdown")
	}
}

func TestServer_ShutdownBeforeListen(t *testing.T) {
	srv := api.NewServer("127.0.0.1:0", http.NotFoundHandler())
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.ErrorIs(t, srv.ListenAndServe(), http.ErrServerClosed)
}
