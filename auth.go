package booru

import (
	"context"
	"fmt"
)

const sankakuTokenURL = "https://login.sankakucomplex.com/auth/token"

type sankakuToken struct {
	Success     bool   `json:"success"`
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
}

// SankakuLogin exchanges a login and password for Sankaku bearer credentials.
// tokenURL may be empty to use the public login endpoint.
func (rt *RestyTransport) SankakuLogin(ctx context.Context, tokenURL, login, password string) (Credentials, error) {
	if tokenURL == "" {
		tokenURL = sankakuTokenURL
	}
	var tok sankakuToken
	resp, err := rt.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"login": login, "password": password}).
		SetResult(&tok).
		Post(tokenURL)
	if err != nil {
		return Credentials{}, err
	}
	rt.logResponse(resp, "login")
	if !resp.IsSuccess() {
		return Credentials{}, &StatusError{URL: tokenURL, Code: resp.StatusCode(), Body: resp.Body()}
	}
	if !tok.Success || tok.AccessToken == "" {
		return Credentials{}, fmt.Errorf("%w: no token response", ErrAuthenticationRequired)
	}
	return Credentials{Login: login, Key: tok.AccessToken}, nil
}
