// Package google resolves credentials for the Google Calendar API.
//
// Credentials are looked up in a fixed order of sources (runtime secret
// mount, environment, local file). The first source that yields a token
// source wins; when none does, Resolve returns ErrCredentialsUnavailable and
// the assistant runs without a calendar backend.
//
// Both service account keys and authorized_user documents (client id,
// client secret and refresh token) are accepted.
package google
