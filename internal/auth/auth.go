// Package auth declares the interface a caller uses to authenticate
// tcsynth against a host judge service. Authentication to that service is
// explicitly out of scope here (per the spec's Non-goals) — this package
// exists only so SynthesizeSuite's callers have a stable seam to implement
// against, the way the rest of the pack's cmd/nerd/internal/auth submodule
// sits behind its own CLI-engine-specific login flows.
package auth

import "context"

// Credentials is whatever a host judge integration needs to authorize its
// own requests; tcsynth never inspects its contents.
type Credentials struct {
	Token string
	Extra map[string]string
}

// Authenticator is implemented by the host integration, never by tcsynth
// itself.
type Authenticator interface {
	Authenticate(ctx context.Context) (Credentials, error)
}

// NoopAuthenticator satisfies Authenticator for local/CLI use where no host
// judge service is involved.
type NoopAuthenticator struct{}

func (NoopAuthenticator) Authenticate(ctx context.Context) (Credentials, error) {
	return Credentials{}, nil
}
