package http

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/turtacn/ContextDiff/internal/config"
)

func TestNewServer_AppliesTimeouts(t *testing.T) {
	t.Parallel()
	s := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 9000, WriteTimeout: time.Minute}, http.NotFoundHandler(), nil)

	assert.Equal(t, "127.0.0.1:9000", s.Addr())
	assert.Equal(t, time.Minute, s.srv.WriteTimeout)
	assert.Equal(t, config.DefaultReadTimeout, s.srv.ReadTimeout)
	assert.Equal(t, config.DefaultIdleTimeout, s.srv.IdleTimeout)
}

func TestNewServer_DefaultAddress(t *testing.T) {
	t.Parallel()
	s := NewServer(config.ServerConfig{}, http.NotFoundHandler(), nil)
	assert.Equal(t, "0.0.0.0:8000", s.Addr())
}

func TestServer_StartServeStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	s := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, handler, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	require.Eventually(t, func() bool { return s.Addr() != "127.0.0.1:0" }, 2*time.Second, 10*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + s.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, <-errCh)
}

//Personal.AI order the ending
