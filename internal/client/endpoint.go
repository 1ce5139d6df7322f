package client

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/GriffinCanCode/webterm/internal/session"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	ErrTokenRequired     = errors.New("rpc endpoint requires a session token")
	ErrUnknownMode       = errors.New("unknown transport mode")
)

// ParseMode maps "stream" and "rpc" to a transport mode.
func ParseMode(name string) (session.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "stream":
		return session.ModeStream, nil
	case "rpc":
		return session.ModeRPC, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// Endpoint builds the WebSocket URL of a terminal session. baseURL may use
// http, https, ws or wss; token is required for the rpc mode.
func Endpoint(baseURL string, mode session.Mode, grid geometry.Grid, token string) (string, error) {
	if err := grid.Validate(); err != nil {
		return "", err
	}

	u, err := parseBase(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	base := strings.TrimSuffix(u.Path, "/")
	switch mode {
	case session.ModeStream:
		u.Path = base + "/termsocket"
	case session.ModeRPC:
		if token == "" {
			return "", ErrTokenRequired
		}
		u.Path = base + "/rpc/token/" + token
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}

	q := u.Query()
	q.Set("rows", strconv.Itoa(grid.Rows))
	q.Set("cols", strconv.Itoa(grid.Cols))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// httpBase returns baseURL with a ws scheme mapped back to http.
func httpBase(baseURL string) (string, error) {
	u, err := parseBase(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	return u.String(), nil
}

func parseBase(baseURL string) (*url.URL, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server URL: %q has no host", baseURL)
	}
	return u, nil
}
