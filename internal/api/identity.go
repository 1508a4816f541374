package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/Shivanand-hulikatti/eventora/internal/oauth"
	"github.com/Shivanand-hulikatti/eventora/internal/transport"
)

const (
	pathLogin    = "/public/api/login"
	pathSignup   = "/public/api/create-user"
	pathUserInfo = "/public/api/getUserInfo"
)

// Login exchanges credentials for a token and stores it in the session.
// The backend answers 202 Accepted with {"token": ...}.
func (c *Client) Login(ctx context.Context, creds model.Credentials) error {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return apperr.Validationf("email and password are required")
	}

	resp, err := c.http.Post(ctx, pathLogin, transport.Options{Body: creds})
	if err != nil {
		return apperr.Classify(err, MsgLoginFailed)
	}
	if resp.Status != http.StatusAccepted {
		c.logger.Warn("login_unexpected_status", "status", resp.Status)
		return &apperr.Error{Kind: apperr.ServerMessage, Status: resp.Status, Message: MsgLoginFailed}
	}

	var tok model.TokenResponse
	if err := resp.Decode(&tok); err != nil || strings.TrimSpace(tok.Token) == "" {
		return &apperr.Error{Kind: apperr.ServerMessage, Status: resp.Status, Message: MsgLoginFailed, Err: err}
	}
	if err := c.session.Set(ctx, tok.Token); err != nil {
		return &apperr.Error{Kind: apperr.Internal, Message: MsgLoginFailed, Err: err}
	}
	c.logger.Info("login_succeeded")
	return nil
}

// Logout drops the token.
func (c *Client) Logout() error {
	if c.session == nil {
		return nil
	}
	return c.session.Clear()
}

// Signup creates an account. It does not sign the user in.
func (c *Client) Signup(ctx context.Context, req model.SignupRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		return apperr.Validationf("display name, email and password are required")
	}

	_, err := c.http.Post(ctx, pathSignup, transport.Options{Body: req})
	if err == nil {
		c.logger.Info("signup_succeeded")
		return nil
	}

	fallback := MsgSignupFailed
	var te *transport.Error
	if errors.As(err, &te) {
		switch te.Status {
		case http.StatusConflict:
			fallback = MsgUserExists
		case http.StatusBadRequest:
			fallback = MsgSignupInvalid
		}
	}
	return apperr.Classify(err, fallback)
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (*model.UserProfile, error) {
	if err := c.requireSession(MsgProfileFailed); err != nil {
		return nil, err
	}
	resp, err := c.http.Get(ctx, pathUserInfo, transport.Options{})
	if err != nil {
		return nil, apperr.Classify(err, MsgProfileFailed)
	}
	var p model.UserProfile
	if err := resp.Decode(&p); err != nil {
		return nil, &apperr.Error{Kind: apperr.ServerMessage, Status: resp.Status, Message: MsgProfileFailed, Err: err}
	}
	return &p, nil
}

// ExchangeOAuthCode trades a provider authorization code for a backend
// token. It does not store the token; the OAuth handler does.
func (c *Client) ExchangeOAuthCode(ctx context.Context, provider, code string) (*model.TokenResponse, error) {
	p, err := oauth.ParseProvider(provider)
	if err != nil {
		return nil, apperr.Validationf("%s", err.Error())
	}
	resp, err := c.http.Get(ctx, p.CodePath(), transport.Options{
		Params:  url.Values{"code": {code}},
		Timeout: oauth.ExchangeTimeout,
	})
	if err != nil {
		return nil, err
	}
	var tok model.TokenResponse
	if err := resp.Decode(&tok); err != nil {
		return nil, &apperr.Error{Kind: apperr.ServerMessage, Status: resp.Status, Message: MsgOAuthFailed, Err: err}
	}
	return &tok, nil
}
