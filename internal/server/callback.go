package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultCallbackTimeout bounds how long [CallbackServer.Wait] waits for the browser.
const DefaultCallbackTimeout = 2 * time.Minute

// CallbackServer runs a temporary HTTP server for one OAuth callback.
type CallbackServer struct {
	Addr    string
	Handler *OAuthHandler
	Logger  *log.Logger
	Timeout time.Duration

	listener net.Listener
	srv      *http.Server
}

// Start binds Addr and serves the callback route in the background.
// Binding happens before returning so the authorization URL can be opened right after.
func (c *CallbackServer) Start() error {
	if c.Logger == nil {
		c.Logger = shared.NewLogger(nil)
	}
	router := NewBasicRouter()
	router.Use(Recover(c.Logger), Logging(c.Logger))
	router.Handler(c.Handler)

	ln, err := net.Listen("tcp", c.Addr)
	if err != nil {
		return fmt.Errorf("%w: callback server: %v", shared.ErrServiceUnavailable, err)
	}
	c.listener = ln
	c.srv = &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := c.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.Handler.Send(OAuthResult{err: fmt.Errorf("server error: %w", err)})
		}
	}()
	c.Logger.Info("callback server listening", "addr", ln.Addr().String())
	return nil
}

// URL returns the base URL the server is reachable at.
func (c *CallbackServer) URL() string {
	if c.listener == nil {
		return ""
	}
	return "http://" + c.listener.Addr().String()
}

// Wait blocks until the callback arrives, ctx ends or the timeout passes, then shuts the server down.
func (c *CallbackServer) Wait(ctx context.Context) (*oauth2.Token, error) {
	if c.srv == nil {
		return nil, fmt.Errorf("%w: callback server not started", shared.ErrServiceUnavailable)
	}
	defer c.shutdown()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-c.Handler.Result():
		if result.Error() != nil {
			return nil, result.Error()
		}
		if result.Token == nil {
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
		}
		return result.Token, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *CallbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.srv.Shutdown(ctx); err != nil {
		c.Logger.Warn("error shutting down callback server", "error", err)
	}
}
