// Package identity exchanges an OAuth authorization code for the signed-in
// person's profile.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dukerupert/eventboard/internal/apperr"
)

// Profile is what the identity provider tells us about a person.
type Profile struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	PictureURL string `json:"picture"`
}

type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Profile, error)
}

type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

// OAuthProvider runs the authorization code flow and then reads the
// provider's userinfo endpoint.
type OAuthProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
}

func NewOAuthProvider(cfg Config) *OAuthProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	return &OAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      scopes,
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *OAuthProvider) Exchange(ctx context.Context, code string) (Profile, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return Profile{}, apperr.Upstream("identity", fmt.Errorf("exchange code: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return Profile{}, apperr.Upstream("identity", fmt.Errorf("fetch userinfo: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Profile{}, apperr.Upstream("identity",
			fmt.Errorf("userinfo status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var prof Profile
	if err := json.NewDecoder(resp.Body).Decode(&prof); err != nil {
		return Profile{}, apperr.Upstream("identity", fmt.Errorf("decode userinfo: %w", err))
	}
	if prof.Subject == "" || prof.Email == "" {
		return Profile{}, apperr.Upstream("identity", fmt.Errorf("userinfo missing sub or email"))
	}
	prof.Email = strings.ToLower(strings.TrimSpace(prof.Email))
	if prof.Name == "" {
		prof.Name = prof.Email
	}
	return prof, nil
}
