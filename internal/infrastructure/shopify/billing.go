package shopify

import (
	"context"
	"fmt"
	"strings"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

const recurringPurchasesQuery = `query appSubscription {
  currentAppInstallation {
    activeSubscriptions {
      name
      test
    }
  }
}`

const oneTimePurchasesQuery = `query appPurchases($endCursor: String) {
  currentAppInstallation {
    oneTimePurchases(first: 250, sortKey: CREATED_AT, after: $endCursor) {
      edges {
        node {
          name
          test
          status
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}`

const recurringPurchaseMutation = `mutation createPaymentMutation(
  $name: String!
  $lineItems: [AppSubscriptionLineItemInput!]!
  $returnUrl: URL!
  $test: Boolean
) {
  appSubscriptionCreate(name: $name, lineItems: $lineItems, returnUrl: $returnUrl, test: $test) {
    confirmationUrl
    userErrors {
      field
      message
    }
  }
}`

const oneTimePurchaseMutation = `mutation createPaymentMutation(
  $name: String!
  $price: MoneyInput!
  $returnUrl: URL!
  $test: Boolean
) {
  appPurchaseOneTimeCreate(name: $name, price: $price, returnUrl: $returnUrl, test: $test) {
    confirmationUrl
    userErrors {
      field
      message
    }
  }
}`

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type purchase struct {
	Name   string `json:"name"`
	Test   bool   `json:"test"`
	Status string `json:"status"`
}

// BillingChecker checks and requests app charges through the admin GraphQL API
type BillingChecker struct {
	client ports.GraphQLClient
	apiKey string
	logger zerolog.Logger
}

// NewBillingChecker creates a new billing checker
func NewBillingChecker(client ports.GraphQLClient, apiKey string, logger zerolog.Logger) *BillingChecker {
	return &BillingChecker{
		client: client,
		apiKey: apiKey,
		logger: logger,
	}
}

// Check reports whether the shop has an active charge named config.ChargeName,
// requesting a new one when it does not. Every failure is a CheckFailed result.
func (b *BillingChecker) Check(ctx context.Context, session *domain.Session, config domain.BillingConfig) domain.BillingResult {
	hasPayment, err := b.hasActivePayment(ctx, session, config)
	if err != nil {
		return domain.CheckFailed(err.Error())
	}
	if hasPayment {
		return domain.HasPayment()
	}

	confirmationURL, err := b.requestPayment(ctx, session, config)
	if err != nil {
		return domain.CheckFailed(err.Error())
	}

	b.logger.Info().
		Str("shop", session.Shop).
		Str("charge", config.ChargeName).
		Msg("Requested app charge")
	return domain.NeedsPayment(confirmationURL)
}

func (b *BillingChecker) hasActivePayment(ctx context.Context, session *domain.Session, config domain.BillingConfig) (bool, error) {
	if config.Interval.IsRecurring() {
		return b.hasSubscription(ctx, session, config)
	}
	return b.hasOneTimePayment(ctx, session, config)
}

func (b *BillingChecker) hasSubscription(ctx context.Context, session *domain.Session, config domain.BillingConfig) (bool, error) {
	var resp struct {
		CurrentAppInstallation struct {
			ActiveSubscriptions []purchase `json:"activeSubscriptions"`
		} `json:"currentAppInstallation"`
	}
	if err := b.client.Query(ctx, session.Shop, session.AccessToken, recurringPurchasesQuery, nil, &resp); err != nil {
		return false, fmt.Errorf("error while billing the store: %w", err)
	}

	for _, subscription := range resp.CurrentAppInstallation.ActiveSubscriptions {
		if matchesCharge(subscription, config) {
			return true, nil
		}
	}
	return false, nil
}

func (b *BillingChecker) hasOneTimePayment(ctx context.Context, session *domain.Session, config domain.BillingConfig) (bool, error) {
	var cursor *string
	for {
		var resp struct {
			CurrentAppInstallation struct {
				OneTimePurchases struct {
					Edges []struct {
						Node purchase `json:"node"`
					} `json:"edges"`
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
				} `json:"oneTimePurchases"`
			} `json:"currentAppInstallation"`
		}

		vars := map[string]interface{}{"endCursor": cursor}
		if err := b.client.Query(ctx, session.Shop, session.AccessToken, oneTimePurchasesQuery, vars, &resp); err != nil {
			return false, fmt.Errorf("error while billing the store: %w", err)
		}

		purchases := resp.CurrentAppInstallation.OneTimePurchases
		for _, edge := range purchases.Edges {
			if edge.Node.Status == "ACTIVE" && matchesCharge(edge.Node, config) {
				return true, nil
			}
		}

		if !purchases.PageInfo.HasNextPage {
			return false, nil
		}
		next := purchases.PageInfo.EndCursor
		cursor = &next
	}
}

// matchesCharge ignores test charges unless the app bills in test mode
func matchesCharge(p purchase, config domain.BillingConfig) bool {
	return p.Name == config.ChargeName && (config.Test || !p.Test)
}

func (b *BillingChecker) requestPayment(ctx context.Context, session *domain.Session, config domain.BillingConfig) (string, error) {
	returnURL := fmt.Sprintf("https://%s/admin/apps/%s", session.Shop, b.apiKey)
	price := map[string]interface{}{
		"amount":       config.Amount,
		"currencyCode": config.CurrencyCode,
	}

	var (
		confirmationURL string
		userErrors      []userError
		err             error
	)
	if config.Interval.IsRecurring() {
		confirmationURL, userErrors, err = b.createSubscription(ctx, session, config, returnURL, price)
	} else {
		confirmationURL, userErrors, err = b.createOneTimePurchase(ctx, session, config, returnURL, price)
	}
	if err != nil {
		return "", fmt.Errorf("error while billing the store: %w", err)
	}

	if len(userErrors) > 0 {
		messages := make([]string, 0, len(userErrors))
		for _, ue := range userErrors {
			messages = append(messages, ue.Message)
		}
		return "", fmt.Errorf("error while billing the store: %s", strings.Join(messages, "; "))
	}
	if confirmationURL == "" {
		return "", fmt.Errorf("error while billing the store: no confirmation url returned")
	}

	return confirmationURL, nil
}

func (b *BillingChecker) createSubscription(ctx context.Context, session *domain.Session, config domain.BillingConfig, returnURL string, price map[string]interface{}) (string, []userError, error) {
	var resp struct {
		AppSubscriptionCreate struct {
			ConfirmationURL string      `json:"confirmationUrl"`
			UserErrors      []userError `json:"userErrors"`
		} `json:"appSubscriptionCreate"`
	}
	vars := map[string]interface{}{
		"name":      config.ChargeName,
		"returnUrl": returnURL,
		"test":      config.Test,
		"lineItems": []map[string]interface{}{{
			"plan": map[string]interface{}{
				"appRecurringPricingDetails": map[string]interface{}{
					"interval": string(config.Interval),
					"price":    price,
				},
			},
		}},
	}
	if err := b.client.Query(ctx, session.Shop, session.AccessToken, recurringPurchaseMutation, vars, &resp); err != nil {
		return "", nil, err
	}
	return resp.AppSubscriptionCreate.ConfirmationURL, resp.AppSubscriptionCreate.UserErrors, nil
}

func (b *BillingChecker) createOneTimePurchase(ctx context.Context, session *domain.Session, config domain.BillingConfig, returnURL string, price map[string]interface{}) (string, []userError, error) {
	var resp struct {
		AppPurchaseOneTimeCreate struct {
			ConfirmationURL string      `json:"confirmationUrl"`
			UserErrors      []userError `json:"userErrors"`
		} `json:"appPurchaseOneTimeCreate"`
	}
	vars := map[string]interface{}{
		"name":      config.ChargeName,
		"returnUrl": returnURL,
		"test":      config.Test,
		"price":     price,
	}
	if err := b.client.Query(ctx, session.Shop, session.AccessToken, oneTimePurchaseMutation, vars, &resp); err != nil {
		return "", nil, err
	}
	return resp.AppPurchaseOneTimeCreate.ConfirmationURL, resp.AppPurchaseOneTimeCreate.UserErrors, nil
}

var _ ports.BillingChecker = (*BillingChecker)(nil)
