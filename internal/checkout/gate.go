package checkout

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/snapcaselabs/snapcase/backend/internal/fault"
	"github.com/snapcaselabs/snapcase/backend/internal/templatestore"
	"go.uber.org/zap"
)

const (
	// ShippingOptionStandard is the default delivery selection.
	ShippingOptionStandard = "standard"
	// ShippingOptionExpress requires both the feature flag and a configured rate.
	ShippingOptionExpress = "express"
)

var errMissingTemplates = errors.New("checkout: template directory is required")

// TemplateResolver is the slice of the template directory the gate needs.
type TemplateResolver interface {
	Get(ctx context.Context, storeID string) (*templatestore.Record, error)
}

// Pricing is the optional client-computed pricing object. It ranks below an
// explicit unit price in the resolution precedence.
type Pricing struct {
	Subtotal *float64 `json:"subtotal,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// Request is a checkout or order-creation attempt as the client claims it.
// Nothing in it is trusted until the gate cross-checks the template record.
type Request struct {
	VariantID       int64
	TemplateStoreID string
	TemplateID      string
	DesignImageURL  string
	Email           string
	Quantity        int
	ShippingOption  string
	UnitPriceCents  *int64
	Currency        string
	Pricing         *Pricing
}

// Resolution is the validated, canonical outcome the payment collaborator
// and order records are built from.
type Resolution struct {
	VariantID         int64
	TemplateID        string
	TemplateStoreID   string
	Quantity          int
	UnitPriceCents    int64
	Currency          string
	PricingSource     string
	ShippingRateID    string
	Email             string
	ResolvedAtSeconds int64
}

// Metadata renders the consistency tuple attached to the payment session so
// a charge stays traceable to the exact template later used for production.
func (r Resolution) Metadata() map[string]string {
	return map[string]string{
		"variant_id":        strconv.FormatInt(r.VariantID, 10),
		"template_id":       r.TemplateID,
		"template_store_id": r.TemplateStoreID,
		"unit_price_cents":  strconv.FormatInt(r.UnitPriceCents, 10),
		"currency":          r.Currency,
		"resolved_at_s":     strconv.FormatInt(r.ResolvedAtSeconds, 10),
	}
}

// GateConfig bundles the dependencies and pricing policy of a Gate.
type GateConfig struct {
	Templates              TemplateResolver
	DefaultUnitPriceCents  int64
	DefaultCurrency        string
	StandardShippingRateID string
	ExpressShippingRateID  string
	ExpressShippingEnabled bool
	Clock                  func() time.Time
	Logger                 *zap.Logger
}

// Gate validates that the variant a customer is about to be charged for is
// the variant their saved template was designed against, and resolves the
// canonical price before money changes hands.
type Gate struct {
	templates        TemplateResolver
	defaultUnitCents int64
	defaultCurrency  string
	standardRateID   string
	expressRateID    string
	expressEnabled   bool
	clock            func() time.Time
	logger           *zap.Logger
}

// NewGate constructs a Gate with sane defaults.
func NewGate(cfg GateConfig) (*Gate, error) {
	if cfg.Templates == nil {
		return nil, errMissingTemplates
	}
	defaultUnitCents := cfg.DefaultUnitPriceCents
	if defaultUnitCents <= 0 {
		defaultUnitCents = 3499
	}
	defaultCurrency := strings.ToLower(strings.TrimSpace(cfg.DefaultCurrency))
	if defaultCurrency == "" {
		defaultCurrency = "usd"
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		templates:        cfg.Templates,
		defaultUnitCents: defaultUnitCents,
		defaultCurrency:  defaultCurrency,
		standardRateID:   strings.TrimSpace(cfg.StandardShippingRateID),
		expressRateID:    strings.TrimSpace(cfg.ExpressShippingRateID),
		expressEnabled:   cfg.ExpressShippingEnabled,
		clock:            clock,
		logger:           logger,
	}, nil
}

// Resolve validates the request against the registered template and returns
// the canonical resolution, or a classified rejection.
func (g *Gate) Resolve(ctx context.Context, request Request) (Resolution, error) {
	if request.VariantID <= 0 {
		return Resolution{}, fault.New(fault.KindValidation, "checkout.invalid_variant",
			"variantId must be a positive integer")
	}

	quantity := request.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return Resolution{}, fault.New(fault.KindValidation, "checkout.invalid_quantity",
			"quantity must be at least 1")
	}

	shippingRateID, err := g.resolveShipping(request.ShippingOption)
	if err != nil {
		return Resolution{}, err
	}

	templateID := strings.TrimSpace(request.TemplateID)
	storeID := strings.TrimSpace(request.TemplateStoreID)
	if storeID != "" {
		record, err := g.templates.Get(ctx, storeID)
		if err != nil {
			return Resolution{}, fault.Wrap(fault.KindUpstreamUnavailable, "checkout.template_lookup_failed",
				"template directory is unavailable, try again", err)
		}
		if record == nil {
			return Resolution{}, fault.New(fault.KindNotFound, "checkout.template_not_found",
				"your saved design has expired, re-save your design in the editor")
		}
		if record.VariantID != request.VariantID {
			return Resolution{}, fault.New(fault.KindConflict, "checkout.variant_mismatch",
				"the selected device does not match your saved design, re-save your design in the editor")
		}
		if record.TemplateID != "" {
			templateID = record.TemplateID
		}
	}

	if templateID == "" {
		// Revenue-protective: an absent design artifact never blocks the
		// charge, but the omission must be observable downstream.
		g.logger.Warn("checkout proceeding without template id",
			zap.Int64("variant_id", request.VariantID),
			zap.String("template_store_id", storeID))
	}

	unitPriceCents, pricingSource := g.resolvePrice(request)

	return Resolution{
		VariantID:         request.VariantID,
		TemplateID:        templateID,
		TemplateStoreID:   storeID,
		Quantity:          quantity,
		UnitPriceCents:    unitPriceCents,
		Currency:          g.resolveCurrency(request),
		PricingSource:     pricingSource,
		ShippingRateID:    shippingRateID,
		Email:             strings.TrimSpace(request.Email),
		ResolvedAtSeconds: g.clock().UTC().Unix(),
	}, nil
}

func (g *Gate) resolveShipping(option string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(option)) {
	case "", ShippingOptionStandard:
		if g.standardRateID == "" {
			return "", fault.New(fault.KindConfigurationMissing, "checkout.standard_rate_missing",
				"standard shipping rate is not configured")
		}
		return g.standardRateID, nil
	case ShippingOptionExpress:
		// Never silently downgrade to standard; that changes the price contract.
		if !g.expressEnabled || g.expressRateID == "" {
			return "", fault.New(fault.KindValidation, "checkout.express_unavailable",
				"express shipping is not available")
		}
		return g.expressRateID, nil
	default:
		return "", fault.New(fault.KindValidation, "checkout.invalid_shipping_option",
			"shippingOption must be standard or express")
	}
}

func (g *Gate) resolvePrice(request Request) (int64, string) {
	if request.UnitPriceCents != nil && *request.UnitPriceCents > 0 {
		return *request.UnitPriceCents, "explicit"
	}
	if request.Pricing != nil && request.Pricing.Subtotal != nil {
		cents := int64(math.Floor(*request.Pricing.Subtotal * 100))
		if cents < 1 {
			cents = 1
		}
		return cents, "pricing_subtotal"
	}
	return g.defaultUnitCents, "platform_default"
}

func (g *Gate) resolveCurrency(request Request) string {
	if currency := strings.TrimSpace(request.Currency); currency != "" {
		return strings.ToLower(currency)
	}
	if request.Pricing != nil {
		if currency := strings.TrimSpace(request.Pricing.Currency); currency != "" {
			return strings.ToLower(currency)
		}
	}
	return g.defaultCurrency
}
