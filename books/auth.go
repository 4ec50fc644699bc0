package books

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

var ErrMissingCredentials = errors.New("missing Zoho credentials")

// Credentials are the long-lived Zoho OAuth credentials
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	// TokenURL is the OAuth token endpoint, see TokenURL
	TokenURL string
}

// Validate makes sure every credential is set
func (c Credentials) Validate() error {
	switch {
	case c.ClientID == "":
		return fmt.Errorf("%w: client id", ErrMissingCredentials)
	case c.ClientSecret == "":
		return fmt.Errorf("%w: client secret", ErrMissingCredentials)
	case c.RefreshToken == "":
		return fmt.Errorf("%w: refresh token", ErrMissingCredentials)
	case c.TokenURL == "":
		return fmt.Errorf("%w: token URL", ErrMissingCredentials)
	}

	return nil
}

// TokenURL returns the OAuth token endpoint for the Zoho data center region (com, in, eu...)
func TokenURL(region string) string {
	return fmt.Sprintf("https://accounts.zoho.%s/oauth/v2/token", region)
}

// APIURL returns the Books API root for the Zoho data center region
func APIURL(region string) string {
	return fmt.Sprintf("https://www.zohoapis.%s/books/v3", region)
}

// Authenticate exchanges the refresh token for a short-lived access token.
// The given HTTP client is used for the token request, if set
func Authenticate(ctx context.Context, creds Credentials, client *http.Client) (*oauth2.Token, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  creds.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}

	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("unable to refresh access token: %w", err)
	}

	return token, nil
}

// Connect authenticates with the given credentials and returns a client
// bound to the organization, using the fresh access token
func Connect(
	ctx context.Context,
	creds Credentials,
	apiURL string,
	organizationID string,
	timeout time.Duration,
	opts ...Option,
) (*Client, error) {
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization id", ErrMissingCredentials)
	}

	token, err := Authenticate(ctx, creds, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, err
	}

	return NewClient(apiURL, organizationID, token.AccessToken, timeout, opts...), nil
}
