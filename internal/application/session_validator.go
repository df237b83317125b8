package application

import (
	"context"
	"fmt"
	"net/http"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// ValidationKind enumerates the outcomes of validating a session
type ValidationKind int

const (
	ValidationInvalid ValidationKind = iota
	ValidationAuthorized
	ValidationRedirect
)

// Validation is the result of SessionValidator.Validate
type Validation struct {
	Kind        ValidationKind
	RedirectURL string
}

// SessionValidator decides whether a loaded or freshly exchanged session may be used
type SessionValidator struct {
	billing ports.BillingChecker
	probe   ports.ConnectivityProbe
	config  domain.BillingConfig
	logger  zerolog.Logger
}

// NewSessionValidator creates a new session validator
func NewSessionValidator(billing ports.BillingChecker, probe ports.ConnectivityProbe, config domain.BillingConfig, logger zerolog.Logger) *SessionValidator {
	return &SessionValidator{
		billing: billing,
		probe:   probe,
		config:  config,
		logger:  logger,
	}
}

// Validate checks token validity, then either the billing policy or API connectivity
func (v *SessionValidator) Validate(ctx context.Context, session *domain.Session) (Validation, error) {
	if !session.IsValid() {
		return Validation{Kind: ValidationInvalid}, nil
	}

	if v.config.Required {
		result := v.billing.Check(ctx, session, v.config)
		switch result.Status {
		case domain.BillingHasPayment:
			return Validation{Kind: ValidationAuthorized}, nil
		case domain.BillingNeedsPayment:
			return Validation{Kind: ValidationRedirect, RedirectURL: result.ConfirmationURL}, nil
		case domain.BillingCheckFailed:
			v.logger.Warn().
				Str("shop", session.Shop).
				Msg(fmt.Sprintf("Billing check failed for %s: %s", session.Shop, result.Reason))
			return Validation{Kind: ValidationInvalid}, nil
		default:
			return Validation{}, fmt.Errorf("unknown billing status %d", result.Status)
		}
	}

	status, err := v.probe.Probe(ctx, session)
	if err != nil {
		return Validation{}, fmt.Errorf("connectivity probe failed: %w", err)
	}
	if status != http.StatusOK {
		v.logger.Debug().Str("shop", session.Shop).Int("status", status).Msg("Connectivity probe rejected session")
		return Validation{Kind: ValidationInvalid}, nil
	}

	return Validation{Kind: ValidationAuthorized}, nil
}
