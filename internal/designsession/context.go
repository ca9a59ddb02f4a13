package designsession

import (
	"time"

	"github.com/snapcaselabs/snapcase/backend/internal/guardrail"
)

// Context is the session-scoped design state a client carries through the
// funnel. It is a value type; every mutation goes through Merge.
type Context struct {
	Version               int64            `json:"version"`
	VariantID             int64            `json:"variant_id,omitempty"`
	ExternalProductID     string           `json:"external_product_id,omitempty"`
	TemplateID            string           `json:"template_id,omitempty"`
	TemplateStoreID       string           `json:"template_store_id,omitempty"`
	TemplateStoredAt      int64            `json:"template_stored_at_s,omitempty"`
	ExportedImage         string           `json:"exported_image,omitempty"`
	DesignFileID          string           `json:"design_file_id,omitempty"`
	DesignFileURL         string           `json:"design_file_url,omitempty"`
	VariantLabel          string           `json:"variant_label,omitempty"`
	LastCheckoutAttemptAt int64            `json:"last_checkout_attempt_at_s,omitempty"`
	UnitPriceCents        int64            `json:"unit_price_cents,omitempty"`
	UnitPriceCurrency     string           `json:"unit_price_currency,omitempty"`
	PricingSource         string           `json:"pricing_source,omitempty"`
	GuardrailSnapshot     *guardrail.State `json:"guardrail_snapshot,omitempty"`
	TimestampSeconds      int64            `json:"timestamp_s"`
}

// Patch describes a partial update. Nil fields are omitted and the previous
// value persists through the merge.
type Patch struct {
	VariantID             *int64
	ExternalProductID     *string
	TemplateID            *string
	TemplateStoreID       *string
	TemplateStoredAt      *int64
	ExportedImage         *string
	DesignFileID          *string
	DesignFileURL         *string
	VariantLabel          *string
	LastCheckoutAttemptAt *int64
	UnitPriceCents        *int64
	UnitPriceCurrency     *string
	PricingSource         *string
	GuardrailSnapshot     *guardrail.State
}

// Merge produces the next context state: patch fields win, omitted fields
// persist, the version increments and the timestamp is refreshed to now.
// It is pure so merge semantics stay testable apart from any storage medium.
func Merge(old Context, patch Patch, now time.Time) Context {
	next := old

	if patch.VariantID != nil {
		next.VariantID = *patch.VariantID
	}
	if patch.ExternalProductID != nil {
		next.ExternalProductID = *patch.ExternalProductID
	}
	if patch.TemplateID != nil {
		next.TemplateID = *patch.TemplateID
	}
	if patch.TemplateStoreID != nil {
		next.TemplateStoreID = *patch.TemplateStoreID
	}
	if patch.TemplateStoredAt != nil {
		next.TemplateStoredAt = *patch.TemplateStoredAt
	}
	if patch.ExportedImage != nil {
		next.ExportedImage = *patch.ExportedImage
	}
	if patch.DesignFileID != nil {
		next.DesignFileID = *patch.DesignFileID
	}
	if patch.DesignFileURL != nil {
		next.DesignFileURL = *patch.DesignFileURL
	}
	if patch.VariantLabel != nil {
		next.VariantLabel = *patch.VariantLabel
	}
	if patch.LastCheckoutAttemptAt != nil {
		next.LastCheckoutAttemptAt = *patch.LastCheckoutAttemptAt
	}
	if patch.UnitPriceCents != nil {
		next.UnitPriceCents = *patch.UnitPriceCents
	}
	if patch.UnitPriceCurrency != nil {
		next.UnitPriceCurrency = *patch.UnitPriceCurrency
	}
	if patch.PricingSource != nil {
		next.PricingSource = *patch.PricingSource
	}
	if patch.GuardrailSnapshot != nil {
		snapshot := *patch.GuardrailSnapshot
		next.GuardrailSnapshot = &snapshot
	}

	next.Version = old.Version + 1
	next.TimestampSeconds = now.Unix()
	return next
}
