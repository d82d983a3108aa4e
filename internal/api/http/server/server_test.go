package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listenFunc func(protocol, addr string) (net.Listener, error)

func (f listenFunc) Listen(protocol, addr string) (net.Listener, error) { return f(protocol, addr) }

func TestHTTPServer_Address(t *testing.T) {
	s := NewHTTPServer(http.NotFoundHandler(), ":4002", time.Second)
	assert.Equal(t, ":4002", s.Address())
}

func TestHTTPServer_StartStop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	s := NewHTTPServer(handler, ":0", time.Second)

	done := make(chan error, 1)
	go func() {
		done <- s.Start(listenFunc(func(protocol, addr string) (net.Listener, error) {
			assert.Equal(t, "tcp", protocol)
			assert.Equal(t, ":0", addr)
			return ln, nil
		}))
	}()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	require.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, <-done)
}

func TestHTTPServer_StartListenError(t *testing.T) {
	s := NewHTTPServer(http.NotFoundHandler(), ":0", time.Second)
	err := s.Start(listenFunc(func(string, string) (net.Listener, error) {
		return nil, errors.New("address in use")
	}))
	assert.ErrorContains(t, err, "failed to listen")
}
