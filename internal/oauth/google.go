// Package oauth runs the Google authorization-code flow: building the consent
// redirect, guarding it with a signed state cookie, exchanging the code and
// reading the user's profile.
package oauth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/secretwall/internal/domain"
)

const (
	// StateCookieName carries the signed state between redirect and callback
	StateCookieName = "oauth_state"

	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	defaultStateTTL    = 10 * time.Minute
)

// Config holds the client registration and optional endpoint overrides
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	StateSecret  string

	// Endpoint overrides, empty means Google's production endpoints
	AuthURL     string
	TokenURL    string
	UserInfoURL string

	StateTTL time.Duration
}

// Flow is a configured Google OAuth client
type Flow struct {
	oauth       *oauth2.Config
	userInfoURL string
	stateKey    []byte
	stateTTL    time.Duration
	now         func() time.Time
}

// stateClaims is the payload of the state cookie. The PKCE verifier rides
// along so the callback can finish the exchange without server-side storage.
type stateClaims struct {
	Verifier string `json:"pkce"`
	jwt.StandardClaims
}

// NewGoogle builds the flow. Without a client ID Google sign-in is disabled
// and ErrOAuthNotConfigured is returned.
func NewGoogle(cfg Config) (*Flow, error) {
	if cfg.ClientID == "" {
		return nil, domain.ErrOAuthNotConfigured
	}
	if cfg.StateSecret == "" {
		return nil, domain.WrapValidationError("STATE_SECRET", fmt.Errorf("required when Google sign-in is enabled"))
	}

	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	f := &Flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"profile"},
		},
		userInfoURL: cfg.UserInfoURL,
		stateKey:    []byte(cfg.StateSecret),
		stateTTL:    cfg.StateTTL,
		now:         time.Now,
	}
	if f.userInfoURL == "" {
		f.userInfoURL = defaultUserInfoURL
	}
	if f.stateTTL <= 0 {
		f.stateTTL = defaultStateTTL
	}
	return f, nil
}

// StateTTL is how long a started flow may take before the callback is refused
func (f *Flow) StateTTL() time.Duration {
	return f.stateTTL
}

// Begin returns the provider consent URL and the signed state to store in
// the StateCookieName cookie
func (f *Flow) Begin() (authURL, stateCookie string, err error) {
	nonce, err := randomHex(16)
	if err != nil {
		return "", "", err
	}
	verifier := oauth2.GenerateVerifier()

	now := f.now()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, stateClaims{
		Verifier: verifier,
		StandardClaims: jwt.StandardClaims{
			Id:        nonce,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(f.stateTTL).Unix(),
		},
	}).SignedString(f.stateKey)
	if err != nil {
		return "", "", fmt.Errorf("sign state: %w", err)
	}

	authURL = f.oauth.AuthCodeURL(nonce, oauth2.S256ChallengeOption(verifier))
	return authURL, signed, nil
}

// Complete validates the callback state against the cookie, exchanges the
// code and fetches the profile
func (f *Flow) Complete(ctx context.Context, stateCookie, state, code string) (domain.GoogleProfile, error) {
	claims, err := f.verifyState(stateCookie, state)
	if err != nil {
		return domain.GoogleProfile{}, domain.WrapOAuthFailed("state check", err)
	}
	if code == "" {
		return domain.GoogleProfile{}, domain.WrapOAuthFailed("callback", fmt.Errorf("missing code"))
	}

	tok, err := f.oauth.Exchange(ctx, code, oauth2.VerifierOption(claims.Verifier))
	if err != nil {
		return domain.GoogleProfile{}, domain.WrapOAuthFailed("code exchange", err)
	}

	profile, err := f.fetchProfile(ctx, tok)
	if err != nil {
		return domain.GoogleProfile{}, domain.WrapOAuthFailed("profile fetch", err)
	}
	return profile, nil
}

func (f *Flow) verifyState(stateCookie, state string) (*stateClaims, error) {
	if stateCookie == "" || state == "" {
		return nil, fmt.Errorf("missing state")
	}

	claims := &stateClaims{}
	parser := &jwt.Parser{}
	_, err := parser.ParseWithClaims(stateCookie, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return f.stateKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !claims.VerifyExpiresAt(f.now().Unix(), true) {
		return nil, fmt.Errorf("state expired")
	}
	if subtle.ConstantTimeCompare([]byte(claims.Id), []byte(state)) != 1 {
		return nil, fmt.Errorf("state mismatch")
	}
	return claims, nil
}

type userInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

func (f *Flow) fetchProfile(ctx context.Context, tok *oauth2.Token) (domain.GoogleProfile, error) {
	client := f.oauth.Client(ctx, tok)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.userInfoURL, nil)
	if err != nil {
		return domain.GoogleProfile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return domain.GoogleProfile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GoogleProfile{}, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.GoogleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return domain.GoogleProfile{}, fmt.Errorf("userinfo has no subject")
	}

	return domain.GoogleProfile{
		ID:      info.Sub,
		Name:    info.Name,
		Email:   info.Email,
		Picture: info.Picture,
	}, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
