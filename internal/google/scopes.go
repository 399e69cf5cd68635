package google

import (
	gcal "google.golang.org/api/calendar/v3"
)

// DefaultOAuthScopes are the scopes requested for every credential type.
var DefaultOAuthScopes = []string{
	gcal.CalendarScope,
}
