package models

// CredentialSource records where a credential set came from.
type CredentialSource string

const (
	CredentialsFromEnv      CredentialSource = "env"
	CredentialsFromSettings CredentialSource = "settings-record"
)

// DropboxCredentials is the resolved cold-storage credential set. AccessToken
// is the only field strictly required to make API calls; the app key/secret
// and refresh token enable recovery from an expired access token.
type DropboxCredentials struct {
	AccessToken  string `dynamodbav:"access_token" json:"-"`
	AppKey       string `dynamodbav:"app_key" json:"-"`
	AppSecret    string `dynamodbav:"app_secret" json:"-"`
	RefreshToken string `dynamodbav:"refresh_token" json:"-"`

	// Source tells observers which layer produced the token.
	Source CredentialSource `dynamodbav:"-" json:"source,omitempty"`
}

// CanRefresh reports whether the set carries enough material to exchange the
// refresh token for a new access token.
func (c DropboxCredentials) CanRefresh() bool {
	return c.RefreshToken != "" && c.AppKey != "" && c.AppSecret != ""
}
