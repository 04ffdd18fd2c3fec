package models

// TokenPair — access token goes out in the response body, refresh
// token only ever travels inside the HttpOnly cookie.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
}
