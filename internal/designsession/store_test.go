package designsession

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T, storage *MemoryStorage, clock func() time.Time) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{Storage: storage, Clock: clock})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return store
}

func TestStoreSaveMergesOverPreviousValue(t *testing.T) {
	storage := NewMemoryStorage()
	store := newTestStore(t, storage, func() time.Time { return time.Unix(1700000000, 0) })

	first := store.Save(Patch{VariantID: pointerTo(int64(632))})
	if first == nil || first.VariantID != 632 {
		t.Fatalf("unexpected first save result: %+v", first)
	}

	second := store.Save(Patch{TemplateStoreID: pointerTo("tstore_1")})
	if second == nil {
		t.Fatalf("expected second save to succeed")
	}
	if second.VariantID != 632 {
		t.Fatalf("variant id must persist through merge, got %d", second.VariantID)
	}
	if second.TemplateStoreID != "tstore_1" {
		t.Fatalf("template store id missing after merge")
	}

	loaded := store.Load()
	if loaded == nil || *loaded != *second {
		t.Fatalf("load should return the last saved context")
	}
}

func TestStoreRepeatedEmptySaveChangesOnlyTimestamp(t *testing.T) {
	current := time.Unix(1700000000, 0)
	storage := NewMemoryStorage()
	store := newTestStore(t, storage, func() time.Time { return current })

	store.Save(Patch{VariantID: pointerTo(int64(632)), TemplateID: pointerTo("tmpl_abc")})

	current = time.Unix(1700000100, 0)
	first := store.Save(Patch{})
	current = time.Unix(1700000200, 0)
	second := store.Save(Patch{})

	if first == nil || second == nil {
		t.Fatalf("expected saves to succeed")
	}
	if second.TimestampSeconds != 1700000200 {
		t.Fatalf("timestamp must refresh on every save")
	}

	normalizedFirst := *first
	normalizedSecond := *second
	normalizedFirst.TimestampSeconds = 0
	normalizedSecond.TimestampSeconds = 0
	normalizedFirst.Version = 0
	normalizedSecond.Version = 0
	if normalizedFirst != normalizedSecond {
		t.Fatalf("empty saves must not change payload fields:\nfirst  %+v\nsecond %+v", normalizedFirst, normalizedSecond)
	}
}

func TestStoreDegradesToNilWhenStorageUnavailable(t *testing.T) {
	storage := NewMemoryStorage()
	storage.SetUnavailable(true)
	store := newTestStore(t, storage, nil)

	if store.Load() != nil {
		t.Fatalf("load must return nil on unavailable storage")
	}
	if store.Save(Patch{VariantID: pointerTo(int64(632))}) != nil {
		t.Fatalf("save must return nil on unavailable storage")
	}
	store.Clear()
}

func TestStoreCorruptPayloadTreatedAsEmpty(t *testing.T) {
	storage := NewMemoryStorage()
	store := newTestStore(t, storage, func() time.Time { return time.Unix(1700000000, 0) })

	if err := storage.Write(defaultSessionKey, []byte("{not json")); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}

	if store.Load() != nil {
		t.Fatalf("corrupt payload must load as nil")
	}

	saved := store.Save(Patch{VariantID: pointerTo(int64(711))})
	if saved == nil || saved.VariantID != 711 {
		t.Fatalf("save after corruption should start from empty context: %+v", saved)
	}
	if saved.Version != 1 {
		t.Fatalf("expected fresh context version 1, got %d", saved.Version)
	}
}

func TestMarkCheckoutAttemptStampsTimestamp(t *testing.T) {
	storage := NewMemoryStorage()
	store := newTestStore(t, storage, func() time.Time { return time.Unix(1700000300, 0) })

	store.Save(Patch{VariantID: pointerTo(int64(632))})
	marked := store.MarkCheckoutAttempt(Patch{})

	if marked == nil {
		t.Fatalf("expected mark to succeed")
	}
	if marked.LastCheckoutAttemptAt != 1700000300 {
		t.Fatalf("expected checkout attempt timestamp, got %d", marked.LastCheckoutAttemptAt)
	}
	if marked.VariantID != 632 {
		t.Fatalf("mark must not clobber existing fields")
	}
}

func TestStoreClearRemovesContext(t *testing.T) {
	storage := NewMemoryStorage()
	store := newTestStore(t, storage, nil)

	store.Save(Patch{VariantID: pointerTo(int64(632))})
	store.Clear()

	if store.Load() != nil {
		t.Fatalf("load after clear must return nil")
	}
}
