package templatestore

import (
	"context"
	"testing"
	"time"
)

type sequenceIDProvider struct {
	ids  []string
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	id := p.ids[p.next]
	p.next++
	return id, nil
}

func newTestDirectory(t *testing.T, now *time.Time, ids ...string) *Directory {
	t.Helper()
	var provider IDProvider
	if len(ids) > 0 {
		provider = &sequenceIDProvider{ids: ids}
	}
	directory, err := NewDirectory(DirectoryConfig{
		Backend:    NewMemoryBackend(),
		Clock:      func() time.Time { return *now },
		IDProvider: provider,
	})
	if err != nil {
		t.Fatalf("failed to build directory: %v", err)
	}
	return directory
}

func TestUpsertGeneratesOpaqueIDWhenNoneSupplied(t *testing.T) {
	now := time.Unix(1700000000, 0)
	directory := newTestDirectory(t, &now)

	record, err := directory.Upsert(context.Background(), UpsertInput{
		TemplateID:        "tmpl_abc",
		VariantID:         632,
		ExternalProductID: "SNAP_IP15PRO_SNAP",
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if record.TemplateStoreID == "" {
		t.Fatalf("expected generated store id")
	}
	if record.CreatedAtSeconds != now.Unix() {
		t.Fatalf("expected createdAt stamped to now")
	}
}

func TestUpsertWithSuppliedIDOverwritesThatRecord(t *testing.T) {
	now := time.Unix(1700000000, 0)
	directory := newTestDirectory(t, &now)

	first, err := directory.Upsert(context.Background(), UpsertInput{
		TemplateID:        "tmpl_abc",
		VariantID:         632,
		ExternalProductID: "SNAP_IP15PRO_SNAP",
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	updated, err := directory.Upsert(context.Background(), UpsertInput{
		TemplateStoreID:   first.TemplateStoreID,
		TemplateID:        "tmpl_def",
		VariantID:         632,
		ExternalProductID: "SNAP_IP15PRO_SNAP",
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if updated.TemplateStoreID != first.TemplateStoreID {
		t.Fatalf("supplied store id must be reused")
	}

	resolved, err := directory.Get(context.Background(), first.TemplateStoreID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if resolved == nil || resolved.TemplateID != "tmpl_def" {
		t.Fatalf("expected overwritten provider details, got %+v", resolved)
	}
}

func TestSecondSaveForProductSupersedesProductLookup(t *testing.T) {
	now := time.Unix(1700000000, 0)
	directory := newTestDirectory(t, &now, "tstore_first", "tstore_second")

	first, err := directory.Upsert(context.Background(), UpsertInput{
		TemplateID:        "tmpl_abc",
		VariantID:         632,
		ExternalProductID: "SNAP_IP15PRO_SNAP",
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second, err := directory.Upsert(context.Background(), UpsertInput{
		TemplateID:        "tmpl_def",
		VariantID:         711,
		ExternalProductID: "SNAP_IP15PRO_SNAP",
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	byProduct, err := directory.GetByExternalProductID(context.Background(), "SNAP_IP15PRO_SNAP")
	if err != nil {
		t.Fatalf("product lookup failed: %v", err)
	}
	if byProduct == nil || byProduct.TemplateStoreID != second.TemplateStoreID {
		t.Fatalf("product lookup must return the newest record, got %+v", byProduct)
	}

	// The superseded record stays reachable by its own store id until TTL.
	byStoreID, err := directory.Get(context.Background(), first.TemplateStoreID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if byStoreID == nil || byStoreID.TemplateID != "tmpl_abc" {
		t.Fatalf("superseded record must stay reachable by store id, got %+v", byStoreID)
	}
}

func TestRecordUnreachableAfterTTL(t *testing.T) {
	now := time.Unix(1700000000, 0)
	directory := newTestDirectory(t, &now)

	record, err := directory.Upsert(context.Background(), UpsertInput{
		TemplateID:        "tmpl_abc",
		VariantID:         632,
		ExternalProductID: "SNAP_IP15PRO_SNAP",
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	now = now.Add(DefaultTTL - time.Second)
	if got, _ := directory.Get(context.Background(), record.TemplateStoreID); got == nil {
		t.Fatalf("record must stay reachable before TTL")
	}

	now = now.Add(2 * time.Second)
	byStoreID, err := directory.Get(context.Background(), record.TemplateStoreID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if byStoreID != nil {
		t.Fatalf("record must be unreachable after TTL, got %+v", byStoreID)
	}

	byProduct, err := directory.GetByExternalProductID(context.Background(), "SNAP_IP15PRO_SNAP")
	if err != nil {
		t.Fatalf("product lookup failed: %v", err)
	}
	if byProduct != nil {
		t.Fatalf("product lookup must be empty after TTL, got %+v", byProduct)
	}
}

func TestUpsertRejectsInvalidInput(t *testing.T) {
	now := time.Unix(1700000000, 0)
	directory := newTestDirectory(t, &now)

	if _, err := directory.Upsert(context.Background(), UpsertInput{ExternalProductID: "SNAP_IP15PRO_SNAP"}); err == nil {
		t.Fatalf("expected error for missing variant id")
	}
	if _, err := directory.Upsert(context.Background(), UpsertInput{VariantID: 632}); err == nil {
		t.Fatalf("expected error for missing external product id")
	}
}
