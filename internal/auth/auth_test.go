package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopAuthenticatorReturnsEmptyCredentials(t *testing.T) {
	var a Authenticator = NoopAuthenticator{}
	creds, err := a.Authenticate(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, Credentials{}, creds)
}
