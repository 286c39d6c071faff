package nepviewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"codeberg.org/mutker/nepcollector/internal/errors"
)

const (
	tokenPath   = "/pv_monitor/appservice/login"
	loginPath   = "/pv_manager/check.php"
	sessionName = "PHPSESSID"
)

// Credentials are the portal account details.
type Credentials struct {
	Email    string
	Password string
}

// Session is the result of a successful authentication.
type Session struct {
	// ID is the portal PHP session id.
	ID string
	// Token is the app API token, empty when the portal did not hand one out.
	Token string
}

type tokenResponse struct {
	Data json.RawMessage `json:"data"`
}

type tokenData struct {
	Token string `json:"Token"`
}

// Authenticate logs into the portal. The app token is fetched on a best
// effort basis; the session login decides whether authentication succeeded.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	if creds.Email == "" || creds.Password == "" {
		return Session{}, errors.New().New(ErrMissingCredentials)
	}

	token, err := c.FetchToken(ctx, creds)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to fetch app token, continuing with session login")
	} else if token == "" {
		c.log.Debug().Msg("Portal returned no app token")
	}

	id, err := c.Login(ctx, creds)
	if err != nil {
		return Session{}, err
	}

	return Session{ID: id, Token: token}, nil
}

// FetchToken requests an app token. A non-200 answer or a body that does not
// carry data.Token yields an empty token, not an error; only transport
// failures are reported.
func (c *Client) FetchToken(ctx context.Context, creds Credentials) (string, error) {
	data := url.Values{}
	data.Set("email", creds.Email)
	data.Set("password", creds.Password)

	req, err := c.newPostFormRequest(ctx, c.monitorURL+tokenPath, data)
	if err != nil {
		return "", err
	}

	_, body, err := c.do(req)
	if err != nil {
		if errors.HasCode(err, ErrUnexpectedStatus) {
			return "", nil
		}
		return "", err
	}

	return parseToken(body), nil
}

func parseToken(body []byte) string {
	var res tokenResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return ""
	}

	var td tokenData
	if err := json.Unmarshal(res.Data, &td); err != nil {
		return ""
	}
	return td.Token
}

// Login opens a portal session and returns its id. The login only counts when
// the portal answers 200 and sets the session cookie.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	errFactory := errors.New()

	if creds.Email == "" || creds.Password == "" {
		return "", errFactory.New(ErrMissingCredentials)
	}

	data := url.Values{}
	data.Set("username", creds.Email)
	data.Set("password", creds.Password)

	req, err := c.newPostFormRequest(ctx, c.userURL+loginPath, data)
	if err != nil {
		return "", err
	}

	resp, _, err := c.do(req)
	if err != nil {
		if errors.HasCode(err, ErrUnexpectedStatus) {
			return "", errFactory.Wrap(ErrLoginRejected, err)
		}
		return "", err
	}

	id := sessionID(resp.Cookies())
	if id == "" && c.client.Jar != nil {
		id = sessionID(c.client.Jar.Cookies(req.URL))
	}
	if id == "" {
		return "", errFactory.WithMessage(ErrLoginRejected, "portal did not set a session cookie")
	}

	c.log.Info().Msg("Logged in to portal")

	return id, nil
}

func sessionID(cookies []*http.Cookie) string {
	for _, cookie := range cookies {
		if cookie.Name == sessionName && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}
