package model

// TokenSet is the triple returned by the identity provider's token endpoint.
// The three tokens always travel together; a partial set is never persisted.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}
