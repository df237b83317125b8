package application

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultAuthPath is the authorization entry point the guard falls back to
const DefaultAuthPath = "/api/auth"

var (
	exitIframePattern = regexp.MustCompile(`(?i)^ExitIframe`)
)

// OutcomeKind enumerates how a guarded request ends
type OutcomeKind int

const (
	// OutcomePassThrough invokes the handler without a session
	OutcomePassThrough OutcomeKind = iota
	// OutcomeAuthorized invokes the handler with Outcome.Session attached
	OutcomeAuthorized
	// OutcomeRedirect sends the browser to Outcome.RedirectURL
	OutcomeRedirect
	// OutcomeShortCircuit answers with the platform-prescribed Outcome.Response
	OutcomeShortCircuit
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePassThrough:
		return "pass_through"
	case OutcomeAuthorized:
		return "authorized"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeShortCircuit:
		return "short_circuit"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of resolving a request
type Outcome struct {
	Kind        OutcomeKind
	Session     *domain.Session
	RedirectURL string
	// TopLevel redirects must leave the embedding iframe
	TopLevel bool
	Response domain.PlatformResponse
	Log      *domain.ResultLog
}

// GuardConfig holds the static settings of a SessionGuard
type GuardConfig struct {
	IsEmbedded bool
	AuthPath   string
}

// SessionGuard resolves every guarded request to an authorized session, a
// redirect, or a platform-prescribed response
type SessionGuard struct {
	store     ports.SessionStore
	identity  ports.SessionIdentity
	verifier  ports.EmbeddedVerifier
	exchanger ports.TokenExchanger
	validator *SessionValidator
	refresher *RefreshCoordinator
	persister *SessionPersister
	config    GuardConfig
	logger    zerolog.Logger
}

// NewSessionGuard creates a new session guard
func NewSessionGuard(
	store ports.SessionStore,
	identity ports.SessionIdentity,
	verifier ports.EmbeddedVerifier,
	exchanger ports.TokenExchanger,
	validator *SessionValidator,
	refresher *RefreshCoordinator,
	persister *SessionPersister,
	config GuardConfig,
	logger zerolog.Logger,
) *SessionGuard {
	if config.AuthPath == "" {
		config.AuthPath = DefaultAuthPath
	}
	return &SessionGuard{
		store:     store,
		identity:  identity,
		verifier:  verifier,
		exchanger: exchanger,
		validator: validator,
		refresher: refresher,
		persister: persister,
		config:    config,
		logger:    logger,
	}
}

type resolveState int

const (
	stateStart resolveState = iota
	stateManagedInstall
	stateNormalizeShop
	stateLoad
	stateShopGuard
	stateRenew
	stateValidateLoaded
	stateVerifyEmbedded
	stateExchange
	stateValidateExchanged
	stateFallback
	stateDone
)

func (s resolveState) String() string {
	return [...]string{
		"start",
		"managed_install",
		"normalize_shop",
		"load",
		"shop_guard",
		"renew",
		"validate_loaded",
		"verify_embedded",
		"exchange",
		"validate_exchanged",
		"fallback",
		"done",
	}[s]
}

// resolution is the working state of one Resolve call
type resolution struct {
	request      *http.Request
	mode         domain.AccessMode
	shop         string
	session      *domain.Session
	verification *domain.VerificationResult
	outcome      Outcome
}

// Resolve runs the guard state machine for one request. The returned error is
// either ErrUnrecognizedAccessMode or a failure no state recovers from.
func (g *SessionGuard) Resolve(r *http.Request, mode domain.AccessMode) (Outcome, error) {
	if err := mode.Validate(); err != nil {
		return Outcome{}, err
	}

	res := &resolution{request: r, mode: mode}
	state := stateStart
	for state != stateDone {
		next, err := g.step(r.Context(), res, state)
		if err != nil {
			return Outcome{}, fmt.Errorf("session guard %s: %w", state, err)
		}
		state = next
	}

	return res.outcome, nil
}

func (g *SessionGuard) step(ctx context.Context, res *resolution, state resolveState) (resolveState, error) {
	switch state {
	case stateStart:
		if IsExitIframePath(res.request.URL.Path) {
			res.outcome = Outcome{Kind: OutcomePassThrough}
			return stateDone, nil
		}
		return stateManagedInstall, nil

	case stateManagedInstall:
		if g.config.IsEmbedded && res.request.URL.Query().Get("embedded") == "1" {
			res.outcome = Outcome{Kind: OutcomePassThrough}
			return stateDone, nil
		}
		return stateNormalizeShop, nil

	case stateNormalizeShop:
		res.shop = domain.SanitizeShopDomain(res.request.URL.Query().Get("shop"))
		return stateLoad, nil

	case stateLoad:
		res.session = g.loadExistingSession(ctx, res)
		return stateShopGuard, nil

	case stateShopGuard:
		if res.session != nil && res.shop != "" && res.session.Shop != res.shop {
			g.logger.Debug().
				Str("shop", res.shop).
				Str("sessionShop", res.session.Shop).
				Msg("Ignoring session that belongs to another shop")
			res.session = nil
		}
		return stateRenew, nil

	case stateRenew:
		if res.mode == domain.AccessModeOffline && res.session != nil && !res.session.IsValid() {
			if refreshed := g.refresher.Refresh(ctx, res.session); refreshed != nil {
				res.session = refreshed
			}
		}
		return stateValidateLoaded, nil

	case stateValidateLoaded:
		if res.session == nil {
			return stateVerifyEmbedded, nil
		}
		return g.applyValidation(ctx, res, stateVerifyEmbedded)

	case stateVerifyEmbedded:
		if !g.config.IsEmbedded || !hasBearerToken(res.request) {
			return stateExchange, nil
		}

		verification, err := g.verifier.VerifyAppHomeRequest(res.request)
		if err != nil {
			return stateDone, fmt.Errorf("verify app home request: %w", err)
		}
		if !verification.OK {
			res.outcome = Outcome{Kind: OutcomeShortCircuit, Response: verification.Response, Log: verification.Log}
			return stateDone, nil
		}

		if verifiedShop := domain.SanitizeShopDomain(verification.Shop); verifiedShop != "" {
			res.shop = verifiedShop
		}
		res.verification = verification
		return stateExchange, nil

	case stateExchange:
		if res.verification == nil || res.verification.IDToken == "" {
			return stateFallback, nil
		}

		exchange, err := g.exchanger.ExchangeToken(ctx, res.mode, res.verification.IDToken, res.verification.NewIDTokenResponse)
		if err != nil {
			return stateDone, fmt.Errorf("exchange token: %w", err)
		}
		if !exchange.OK || exchange.AccessToken == nil {
			res.outcome = Outcome{Kind: OutcomeShortCircuit, Response: exchange.Response, Log: exchange.Log}
			return stateDone, nil
		}

		res.session = g.persister.StoreExchangedSession(ctx, exchange.AccessToken, res.mode, res.verification.UserID)
		return stateValidateExchanged, nil

	case stateValidateExchanged:
		if res.session == nil {
			return stateFallback, nil
		}
		return g.applyValidation(ctx, res, stateFallback)

	case stateFallback:
		shop := res.shop
		if shop == "" && res.session != nil {
			shop = res.session.Shop
		}
		res.outcome = Outcome{
			Kind:        OutcomeRedirect,
			RedirectURL: g.config.AuthPath + "?shop=" + url.QueryEscape(shop),
			TopLevel:    true,
		}
		return stateDone, nil
	}

	return stateDone, fmt.Errorf("unknown state %d", state)
}

// applyValidation validates res.session, finishing on Authorized or Redirect
// and continuing at onInvalid otherwise.
func (g *SessionGuard) applyValidation(ctx context.Context, res *resolution, onInvalid resolveState) (resolveState, error) {
	validation, err := g.validator.Validate(ctx, res.session)
	if err != nil {
		return stateDone, err
	}

	switch validation.Kind {
	case ValidationAuthorized:
		res.outcome = Outcome{Kind: OutcomeAuthorized, Session: res.session}
		return stateDone, nil
	case ValidationRedirect:
		res.outcome = Outcome{Kind: OutcomeRedirect, RedirectURL: validation.RedirectURL}
		return stateDone, nil
	case ValidationInvalid:
		return onInvalid, nil
	}
	return stateDone, fmt.Errorf("unknown validation kind %d", validation.Kind)
}

// loadExistingSession never fails: store and identity errors mean "no session".
func (g *SessionGuard) loadExistingSession(ctx context.Context, res *resolution) *domain.Session {
	var (
		session *domain.Session
		err     error
	)

	if res.mode == domain.AccessModeOffline && res.shop != "" {
		session, err = g.store.LoadOfflineSession(ctx, res.shop)
	} else {
		var id string
		id, err = g.identity.CurrentSessionID(res.request, res.mode)
		if err == nil && id != "" {
			session, err = g.store.LoadSession(ctx, id)
		}
	}

	if err != nil {
		g.logger.Debug().Err(err).Str("shop", res.shop).Msg("Failed to load session, treating as absent")
		return nil
	}
	return session
}

// IsExitIframePath reports whether path is the iframe-escape page
func IsExitIframePath(path string) bool {
	return exitIframePattern.MatchString(strings.TrimPrefix(path, "/"))
}

func hasBearerToken(r *http.Request) bool {
	return domain.BearerToken(r.Header.Get("Authorization")) != ""
}
