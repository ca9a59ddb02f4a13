package templatestore

import "time"

// Record binds a server-issued store id to a provider template identity.
// The store id is the only handle clients are trusted to hold; everything
// money-relevant is cross-checked against this record at checkout.
type Record struct {
	TemplateStoreID   string `json:"template_store_id"`
	TemplateID        string `json:"template_id,omitempty"`
	VariantID         int64  `json:"variant_id"`
	ExternalProductID string `json:"external_product_id"`
	DesignURL         string `json:"design_url,omitempty"`
	PrintfulFileID    string `json:"printful_file_id,omitempty"`
	PrintfulFileURL   string `json:"printful_file_url,omitempty"`
	CreatedAtSeconds  int64  `json:"created_at_s"`
}

// ExpiresAt returns the moment this record stops being trustworthy.
func (r Record) ExpiresAt(ttl time.Duration) time.Time {
	return time.Unix(r.CreatedAtSeconds, 0).Add(ttl)
}

func (r Record) expired(now time.Time, ttl time.Duration) bool {
	return now.After(r.ExpiresAt(ttl)) || now.Equal(r.ExpiresAt(ttl))
}
