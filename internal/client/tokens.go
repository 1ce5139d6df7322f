package client

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

const requestTimeout = 10 * time.Second

// Token is the server's answer to POST /sessions.
type Token struct {
	Token     string    `json:"token"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RequestToken asks the server at baseURL for a single-use RPC session token.
func RequestToken(ctx context.Context, baseURL string) (Token, error) {
	base, err := httpBase(baseURL)
	if err != nil {
		return Token{}, err
	}

	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(requestTimeout).
		SetHeader("User-Agent", "webterm-client/0.3").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	var (
		token   Token
		failure errorResponse
	)
	resp, err := rc.R().
		SetContext(ctx).
		SetResult(&token).
		SetError(&failure).
		Post("/sessions")
	if err != nil {
		return Token{}, fmt.Errorf("request token: %w", err)
	}
	if resp.IsError() {
		if failure.Error != "" {
			return Token{}, fmt.Errorf("request token: %s: %s", resp.Status(), failure.Error)
		}
		return Token{}, fmt.Errorf("request token: %s", resp.Status())
	}
	if token.Token == "" {
		return Token{}, fmt.Errorf("request token: empty token in response")
	}
	return token, nil
}
