package vr

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"

	"github.com/Chicken/VenaaRauhassa/internal/models"
	"github.com/Chicken/VenaaRauhassa/internal/upstream"
)

const (
	vendorVR   = "vr"
	vendorVRID = "vr-id"

	verifierCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_~."
	verifierLength  = 43
)

// Config holds the VR API and identity provider settings
type Config struct {
	Username     string
	Password     string
	APIKey       string
	APIURL       string
	IDAPIURL     string
	SecondaryURL string
	ChannelID    string
	ClientID     string
	Tenant       string
	Connection   string
}

// IdentityProvider performs the login and refresh exchanges
type IdentityProvider interface {
	Login(ctx context.Context) (models.Session, error)
	Refresh(ctx context.Context, current models.Session) (models.Session, error)
}

// Identity talks to the VR identity provider over HTTP
type Identity struct {
	http   *upstream.Client
	config Config
}

func NewIdentity(client *upstream.Client, config Config) *Identity {
	return &Identity{http: client, config: config}
}

type loginConfig struct {
	ExtraParams struct {
		State string `json:"state"`
	} `json:"extraParams"`
}

// Login runs the full challenge, credential, callback and token exchange
func (i *Identity) Login(ctx context.Context) (models.Session, error) {
	log.Println("Logging in on a new session...")

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return models.Session{}, &AuthError{Step: "cookie jar", Err: err}
	}
	client := i.http.WithJar(jar)

	verifier, err := randomVerifier()
	if err != nil {
		return models.Session{}, &AuthError{Step: "verifier", Err: err}
	}
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.StdEncoding.EncodeToString(sum[:])

	state, err := i.initLogin(ctx, client, challenge)
	if err != nil {
		return models.Session{}, &AuthError{Step: "login init", Err: err}
	}

	form, err := i.submitCredentials(ctx, client, state)
	if err != nil {
		return models.Session{}, &AuthError{Step: "credentials", Err: err}
	}

	sessionKey, err := i.callback(ctx, client, form)
	if err != nil {
		return models.Session{}, &AuthError{Step: "callback", Err: err}
	}

	sessionID := uuid.NewString()
	body, err := client.PostJSON(ctx, vendorVR, i.config.APIURL+"/ciam/tokens",
		map[string]any{
			"sessionKey": sessionKey,
			"verifier":   verifier,
		},
		i.headers(sessionID, ""),
	)
	if err != nil {
		return models.Session{}, &AuthError{Step: "token exchange", Err: err}
	}

	token, expires, err := parseToken(body)
	if err != nil {
		return models.Session{}, &AuthError{Step: "token exchange", Err: err}
	}

	return models.Session{SessionID: sessionID, Token: token, ExpiresOn: expires}, nil
}

// Refresh renews the token of an existing session; the session id is kept
func (i *Identity) Refresh(ctx context.Context, current models.Session) (models.Session, error) {
	log.Println("Refreshing token...")

	body, err := i.http.PostJSON(ctx, vendorVR, i.config.APIURL+"/auth/token",
		map[string]any{},
		i.headers(current.SessionID, current.Token),
	)
	if err != nil {
		return models.Session{}, &AuthError{Step: "refresh", Err: err}
	}

	token, expires, err := parseToken(body)
	if err != nil {
		return models.Session{}, &AuthError{Step: "refresh", Err: err}
	}

	return models.Session{SessionID: current.SessionID, Token: token, ExpiresOn: expires}, nil
}

func (i *Identity) headers(sessionID, token string) map[string]string {
	h := map[string]string{
		"x-vr-requestid": uuid.NewString(),
		"x-vr-sessionid": sessionID,
		"aste-apikey":    i.config.APIKey,
	}
	if token != "" {
		h["x-jwt-token"] = token
	}
	return h
}

func (i *Identity) loginURL(challenge string) string {
	appLink := i.config.SecondaryURL + "/ciam-auth?" + url.Values{
		"challenge": {challenge},
		"action":    {"login"},
	}.Encode()

	dynamicLink := i.config.SecondaryURL + "/?" + url.Values{
		"ibi":  {"fi.vr.mobile.app"},
		"apn":  {"fi.vr.mobile.app"},
		"ius":  {"matkallaprod"},
		"isi":  {"1410647394"},
		"ofl":  {"https://www.vr.fi/"},
		"link": {appLink},
	}.Encode()

	callback := i.config.APIURL + "/ciam/callback?" + url.Values{
		"redirect_uri": {dynamicLink},
	}.Encode()

	return i.config.IDAPIURL + "/vrgroup/uaa/v1/api/login?" + url.Values{
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
		"locale":                {"en"},
		"channel_id":            {i.config.ChannelID},
		"redirect_uri":          {callback},
	}.Encode()
}

// initLogin loads the login page and extracts the state embedded in it as
// base64 encoded JSON (`... = "<base64>"`)
func (i *Identity) initLogin(ctx context.Context, client *upstream.Client, challenge string) (string, error) {
	res, err := client.Send(ctx, vendorVRID, http.MethodGet, i.loginURL(challenge), nil, nil, nil)
	if err != nil {
		return "", err
	}

	_, encoded, found := strings.Cut(string(res.Body), ` = "`)
	if !found {
		return "", errors.New("login config not found in page")
	}
	encoded, _, _ = strings.Cut(encoded, `"`)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode login config: %w", err)
	}

	var cfg loginConfig
	if err := json.Unmarshal(decoded, &cfg); err != nil {
		return "", &upstream.SchemaError{Resource: "login config", Payload: decoded, Err: err}
	}
	if cfg.ExtraParams.State == "" {
		return "", &upstream.SchemaError{Resource: "login config", Payload: decoded, Err: missingField("extraParams.state")}
	}
	return cfg.ExtraParams.State, nil
}

// submitCredentials posts the username and password and returns the hidden
// fields of the auto-submitting form the provider answers with
func (i *Identity) submitCredentials(ctx context.Context, client *upstream.Client, state string) (url.Values, error) {
	body, err := client.PostJSON(ctx, vendorVRID, i.config.IDAPIURL+"/usernamepassword/login",
		map[string]any{
			"client_id": i.config.ClientID,
			"tenant":    i.config.Tenant,
			// spelled the way the provider has always received it
			"reponse_type": "token",
			"connection":   i.config.Connection,
			"state":        state,
			"username":     i.config.Username,
			"password":     i.config.Password,
		},
		map[string]string{"Accept": "text/html"},
	)
	if err != nil {
		return nil, err
	}

	fields, err := formInputs(strings.NewReader(string(body)), "wa", "wresult", "wctx")
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"wa", "wresult", "wctx"} {
		if fields.Get(name) == "" {
			return nil, errors.New("failed to parse login form data")
		}
	}
	return fields, nil
}

// callback submits the login form and reads the session key from the final
// redirect target: /?link=<url with session_key>
func (i *Identity) callback(ctx context.Context, client *upstream.Client, form url.Values) (string, error) {
	res, err := client.Send(ctx, vendorVRID, http.MethodPost, i.config.IDAPIURL+"/login/callback",
		[]byte(form.Encode()), nil,
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	)
	if err != nil {
		return "", err
	}

	link := res.FinalURL.Query().Get("link")
	if link == "" {
		return "", errors.New("callback did not redirect to an app link")
	}
	linkURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid app link: %w", err)
	}
	sessionKey := linkURL.Query().Get("session_key")
	if sessionKey == "" {
		return "", errors.New("app link has no session key")
	}
	return sessionKey, nil
}

// formInputs returns the values of the named input elements in an HTML document
func formInputs(r io.Reader, names ...string) (url.Values, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse login form: %w", err)
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	values := url.Values{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "input" {
			var name, value string
			for _, a := range n.Attr {
				switch a.Key {
				case "name":
					name = a.Val
				case "value":
					value = a.Val
				}
			}
			if wanted[name] && values.Get(name) == "" {
				values.Set(name, value)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return values, nil
}

func randomVerifier() (string, error) {
	buf := make([]byte, verifierLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, verifierLength)
	for i, b := range buf {
		out[i] = verifierCharset[int(b)%len(verifierCharset)]
	}
	return string(out), nil
}
