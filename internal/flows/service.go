package flows

import (
	"context"

	"github.com/MrEthical07/aegis/autherr"
	"github.com/MrEthical07/aegis/store"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Session.NewToken != nil
}

func (s Service) CreateSession(ctx context.Context, user *store.User, in CreateSessionInput) autherr.Result[*store.Session] {
	return RunCreateSession(ctx, user, in, s.deps.Session)
}

func (s Service) RevokeSession(ctx context.Context, userID, token string) autherr.Result[struct{}] {
	return RunRevokeSession(ctx, userID, token, s.deps.Session)
}

func (s Service) RevokeAllSessions(ctx context.Context, userID string) autherr.Result[struct{}] {
	return RunRevokeAllSessions(ctx, userID, s.deps.Session)
}

func (s Service) SignUp(ctx context.Context, in SignUpInput) autherr.Result[*SignUpResult] {
	return RunSignUp(ctx, in, s.deps.SignUp)
}

func (s Service) SignIn(ctx context.Context, in SignInInput) autherr.Result[*SignInResult] {
	return RunSignIn(ctx, in, s.deps.SignIn)
}

func (s Service) SignOut(ctx context.Context, token string) autherr.Result[struct{}] {
	return RunSignOut(ctx, token, s.deps.SignOut)
}

func (s Service) ResolveSession(ctx context.Context, token string) autherr.Result[*SessionData] {
	return RunResolveSession(ctx, token, s.deps.Resolve)
}
