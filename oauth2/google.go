package oauth2

import (
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// NewGoogleFederator configures a Federator for Google sign-in. Empty
// arguments fall back to the OAUTH2_GOOGLE_* environment variables.
func NewGoogleFederator(clientId string, clientSecret string, callbackUrl string, handleUser HandleUserFunc) *Federator {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}
	return &Federator{
		Name:         "google",
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
		UserInfoURL:  GoogleUserInfoURL,
		AuthOptions: []oauth2.AuthCodeOption{
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("prompt", "consent"),
		},
		HandleUser: handleUser,
	}
}
