// Package creds resolves cold-storage credentials from the environment with
// the persisted settings record as fallback.
package creds

import (
	"context"
	"errors"
	"os"

	"artsync/internal/models"
)

// ErrCredentialsUnavailable means neither the environment nor the settings
// record produced a usable access token.
var ErrCredentialsUnavailable = errors.New("no dropbox access token available from env or settings")

// SettingsSource reads the global settings record's credential block.
type SettingsSource interface {
	GetDropboxSettings(ctx context.Context) (*models.DropboxCredentials, error)
}

type Resolver struct {
	settings SettingsSource
}

func NewResolver(settings SettingsSource) *Resolver {
	return &Resolver{settings: settings}
}

// Resolve is a pure read: environment values win field by field, anything
// missing is filled from the settings record. No token refresh happens here;
// that belongs to the client holding the long-lived session.
func (r *Resolver) Resolve(ctx context.Context) (models.DropboxCredentials, error) {
	out := models.DropboxCredentials{
		AccessToken:  os.Getenv("DROPBOX_ACCESS_TOKEN"),
		AppKey:       os.Getenv("DROPBOX_APP_KEY"),
		AppSecret:    os.Getenv("DROPBOX_APP_SECRET"),
		RefreshToken: os.Getenv("DROPBOX_REFRESH_TOKEN"),
		Source:       models.CredentialsFromEnv,
	}

	if out.AccessToken == "" || out.AppKey == "" || out.AppSecret == "" || out.RefreshToken == "" {
		stored, err := r.settings.GetDropboxSettings(ctx)
		if err != nil {
			return models.DropboxCredentials{}, err
		}
		if stored != nil {
			if out.AccessToken == "" {
				out.AccessToken = stored.AccessToken
				out.Source = models.CredentialsFromSettings
			}
			if out.AppKey == "" {
				out.AppKey = stored.AppKey
			}
			if out.AppSecret == "" {
				out.AppSecret = stored.AppSecret
			}
			if out.RefreshToken == "" {
				out.RefreshToken = stored.RefreshToken
			}
		}
	}

	if out.AccessToken == "" {
		return models.DropboxCredentials{}, ErrCredentialsUnavailable
	}
	return out, nil
}
