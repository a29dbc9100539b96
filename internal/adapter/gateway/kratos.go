package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"auth-sync/internal/domain"
	authotel "auth-sync/utils/otel"

	kratos "github.com/ory/kratos-client-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation names used in errors, spans and metrics.
const (
	OpCreateAccount = "create_account"
	OpStartSession  = "start_session"
	OpCurrentUser   = "current_user"
	OpEndSession    = "end_session"
)

// KratosGateway implements domain.IdentityClient against the Ory Kratos
// native (API) flows. The session token issued by a successful login is held
// here and sent on every later call.
//
// Logins and logouts whose context carries a store ticket are ordered by it:
// the held token only ever belongs to the newest ticketed operation.
type KratosGateway struct {
	client *kratos.APIClient
	logger *slog.Logger
	tracer trace.Tracer

	mu           sync.RWMutex
	sessionToken string
	tokenTicket  domain.Ticket
}

// NewKratosGateway creates a new Kratos gateway with tuned HTTP transport.
func NewKratosGateway(baseURL string, timeout time.Duration, logger *slog.Logger) *KratosGateway {
	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{URL: baseURL},
	}
	configuration.UserAgent = "auth-sync"

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	configuration.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &KratosGateway{
		client: kratos.NewAPIClient(configuration),
		logger: logger,
		tracer: otel.Tracer("auth-sync/gateway"),
	}
}

// SetSessionToken replaces the held session token. An empty token forgets it.
func (g *KratosGateway) SetSessionToken(token string) {
	g.mu.Lock()
	g.sessionToken = token
	g.mu.Unlock()
}

// SessionToken returns the held session token, if any.
func (g *KratosGateway) SessionToken() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sessionToken
}

// CreateAccount registers a new identity with the password method. It does
// not start a session.
func (g *KratosGateway) CreateAccount(ctx context.Context, creds domain.Credentials) (user domain.UserRecord, err error) {
	ctx, finish := g.begin(ctx, OpCreateAccount)
	defer func() { finish(err) }()

	flow, resp, err := g.client.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return domain.UserRecord{}, classifyError(OpCreateAccount, resp, err)
	}

	traits := map[string]interface{}{"email": creds.Email}
	if creds.Name != "" {
		traits["name"] = creds.Name
	}
	body := kratos.UpdateRegistrationFlowWithPasswordMethod{
		Method:   "password",
		Password: creds.Password,
		Traits:   traits,
	}

	result, resp, err := g.client.FrontendAPI.
		UpdateRegistrationFlow(ctx).
		Flow(flow.GetId()).
		UpdateRegistrationFlowBody(kratos.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(&body)).
		Execute()
	if err != nil {
		return domain.UserRecord{}, classifyError(OpCreateAccount, resp, err)
	}

	identity := result.GetIdentity()
	user = userFromIdentity(&identity)
	g.logger.InfoContext(ctx, "account created", "user_id", user.ID)
	return user, nil
}

// StartSession logs in with the password method and keeps the issued token.
// A token it replaces is revoked, so only the held token stays live.
func (g *KratosGateway) StartSession(ctx context.Context, email, password string) (err error) {
	ctx, finish := g.begin(ctx, OpStartSession)
	defer func() { finish(err) }()

	flow, resp, err := g.client.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return classifyError(OpStartSession, resp, err)
	}

	body := kratos.UpdateLoginFlowWithPasswordMethod{
		Method:     "password",
		Identifier: email,
		Password:   password,
	}

	result, resp, err := g.client.FrontendAPI.
		UpdateLoginFlow(ctx).
		Flow(flow.GetId()).
		UpdateLoginFlowBody(kratos.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&body)).
		Execute()
	if err != nil {
		return classifyError(OpStartSession, resp, err)
	}

	token := result.GetSessionToken()
	if token == "" {
		return domain.NewIdentityError(domain.KindTransport, OpStartSession,
			"identity service issued no session token", nil)
	}
	replaced, ok := g.adoptToken(ctx, token)
	if !ok {
		g.revoke(ctx, token)
		return domain.ErrSuperseded
	}
	if replaced != "" && replaced != token {
		g.revoke(ctx, replaced)
	}

	session := result.GetSession()
	g.logger.InfoContext(ctx, "session started", "session_id", session.GetId())
	return nil
}

// CurrentUser asks the service who the held token belongs to. It always
// makes the round trip: with no token the service answers 401 and the result
// is Unauthenticated.
func (g *KratosGateway) CurrentUser(ctx context.Context) domain.CurrentUserResult {
	var err error
	ctx, finish := g.begin(ctx, OpCurrentUser)
	defer func() { finish(err) }()

	req := g.client.FrontendAPI.ToSession(ctx)
	if token := g.SessionToken(); token != "" {
		req = req.XSessionToken(token)
	}

	session, resp, callErr := req.Execute()
	if callErr != nil {
		ie := classifyError(OpCurrentUser, resp, callErr)
		if ie.Kind == domain.KindNoSession {
			return domain.Unauthenticated{}
		}
		err = ie
		return domain.TransportFailed{Err: ie}
	}

	if session.HasActive() && !session.GetActive() {
		return domain.Unauthenticated{}
	}
	if !session.HasIdentity() {
		err = domain.NewIdentityError(domain.KindTransport, OpCurrentUser, "", domain.ErrMissingUser)
		return domain.TransportFailed{Err: err}
	}

	return domain.Authenticated{User: userFromIdentity(session.Identity)}
}

// EndSession revokes every session of the signed-in identity: the other
// sessions first, then the one behind the held token. The token is forgotten
// once the service no longer recognizes it.
func (g *KratosGateway) EndSession(ctx context.Context) (err error) {
	ctx, finish := g.begin(ctx, OpEndSession)
	defer func() { finish(err) }()

	token, ok := g.claimToken(ctx)
	if !ok {
		return domain.ErrSuperseded
	}
	if token == "" {
		return domain.NewIdentityError(domain.KindNoSession, OpEndSession, "", nil)
	}

	revoked, resp, err := g.client.FrontendAPI.DisableMyOtherSessions(ctx).XSessionToken(token).Execute()
	if err != nil {
		return g.endSessionFailed(token, resp, err)
	}

	resp, err = g.client.FrontendAPI.
		PerformNativeLogout(ctx).
		PerformNativeLogoutBody(*kratos.NewPerformNativeLogoutBody(token)).
		Execute()
	if err != nil {
		return g.endSessionFailed(token, resp, err)
	}

	g.clearTokenIf(token)
	g.logger.InfoContext(ctx, "session ended", "other_sessions_revoked", revoked.GetCount())
	return nil
}

func (g *KratosGateway) endSessionFailed(token string, resp *http.Response, err error) error {
	ie := classifyError(OpEndSession, resp, err)
	if ie.Kind == domain.KindNoSession {
		g.clearTokenIf(token)
	}
	return ie
}

// adoptToken holds token unless ctx belongs to an operation older than the
// last one that claimed the session. It returns the token it replaced.
func (g *KratosGateway) adoptToken(ctx context.Context, token string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.claimLocked(ctx) {
		return "", false
	}
	replaced := g.sessionToken
	g.sessionToken = token
	return replaced, true
}

// claimToken returns the held token for a logout, or false when a newer
// operation owns the session.
func (g *KratosGateway) claimToken(ctx context.Context) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.claimLocked(ctx) {
		return "", false
	}
	return g.sessionToken, true
}

func (g *KratosGateway) claimLocked(ctx context.Context) bool {
	t, ok := domain.TicketFrom(ctx)
	if !ok {
		return true
	}
	if t < g.tokenTicket {
		return false
	}
	g.tokenTicket = t
	return true
}

// revoke ends a session this gateway no longer holds. Failure only leaves the
// session to expire on its own.
func (g *KratosGateway) revoke(ctx context.Context, token string) {
	_, err := g.client.FrontendAPI.
		PerformNativeLogout(ctx).
		PerformNativeLogoutBody(*kratos.NewPerformNativeLogoutBody(token)).
		Execute()
	if err != nil {
		g.logger.WarnContext(ctx, "failed to revoke unheld session", "error", err)
		return
	}
	g.logger.InfoContext(ctx, "unheld session revoked")
}

// clearTokenIf forgets token unless a concurrent login already replaced it.
func (g *KratosGateway) clearTokenIf(token string) {
	g.mu.Lock()
	if g.sessionToken == token {
		g.sessionToken = ""
	}
	g.mu.Unlock()
}

// begin opens a client span and returns a closure recording its outcome.
func (g *KratosGateway) begin(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := g.tracer.Start(ctx, "kratos."+op, trace.WithSpanKind(trace.SpanKindClient))

	return ctx, func(err error) {
		outcome := "ok"
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrSuperseded):
			outcome = "superseded"
			span.SetAttributes(attribute.String("auth_sync.error_kind", outcome))
			g.logger.InfoContext(ctx, "identity service call superseded", "operation", op)
		default:
			outcome = "error"
			if kind, ok := domain.KindOf(err); ok {
				outcome = kind.String()
			}
			span.SetAttributes(attribute.String("auth_sync.error_kind", outcome))
			if errors.Is(err, domain.ErrTransport) {
				span.SetStatus(codes.Error, err.Error())
				span.RecordError(err)
			}
			g.logger.WarnContext(ctx, "identity service call failed", "operation", op, "kind", outcome, "error", err)
		}
		span.End()
		authotel.RecordIdentityCall(ctx, op, outcome, time.Since(start))
	}
}

func userFromIdentity(identity *kratos.Identity) domain.UserRecord {
	if identity == nil {
		return domain.UserRecord{}
	}

	traits, _ := identity.GetTraits().(map[string]interface{})
	email, _ := traits["email"].(string)

	return domain.NewUserRecord(
		identity.GetId(),
		email,
		displayName(traits["name"]),
		identity.GetCreatedAt(),
		traits,
	)
}

// displayName accepts either a plain string or the {first, last} object used
// by the stock Kratos identity schema.
func displayName(v interface{}) string {
	switch name := v.(type) {
	case string:
		return name
	case map[string]interface{}:
		first, _ := name["first"].(string)
		last, _ := name["last"].(string)
		switch {
		case first != "" && last != "":
			return first + " " + last
		case first != "":
			return first
		default:
			return last
		}
	default:
		return ""
	}
}
