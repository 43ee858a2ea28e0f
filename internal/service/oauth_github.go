package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const oauthExchangeTimeout = 10 * time.Second

// OAuthProfile is the subset of an external account used to sign a user in.
type OAuthProfile struct {
	ProviderID int64
	Email      string
	FirstName  string
	LastName   string
	AvatarURL  string
}

type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*OAuthProfile, error)
}

type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiBase: "https://api.github.com",
	}
}

func (p *GitHubProvider) WithEndpoints(endpoint oauth2.Endpoint, apiBase string) *GitHubProvider {
	p.config.Endpoint = endpoint
	p.apiBase = strings.TrimRight(apiBase, "/")
	return p
}

func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*OAuthProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, oauthExchangeTimeout)
	defer cancel()

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github token exchange: %w", err)
	}
	client := p.config.Client(ctx, token)

	var user githubUser
	if err := p.getJSON(client, "/user", &user); err != nil {
		return nil, err
	}
	var emails []githubEmail
	if err := p.getJSON(client, "/user/emails", &emails); err != nil {
		return nil, err
	}

	profile := &OAuthProfile{ProviderID: user.ID, AvatarURL: user.AvatarURL}
	for _, e := range emails {
		if e.Primary && e.Verified {
			profile.Email = e.Email
			break
		}
	}
	if profile.Email == "" {
		return nil, ErrOAuthEmailUnavailable
	}

	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = user.Login
	}
	first, last, _ := strings.Cut(name, " ")
	profile.FirstName = first
	profile.LastName = strings.TrimSpace(last)
	return profile, nil
}

func (p *GitHubProvider) getJSON(client *http.Client, path string, out any) error {
	resp, err := client.Get(p.apiBase + path)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	return nil
}
