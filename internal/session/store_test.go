package session

import (
	"bytes"
	"context"
	"testing"

	"github.com/andikarhm/filmku/internal/db"
	"github.com/andikarhm/filmku/internal/model"
)

func testSession() model.Session {
	return model.Session{
		Token:    "bearer-token-123",
		UserID:   7,
		Name:     "Farhan",
		Email:    "farhan@example.com",
		PhotoURL: "https://example.com/p.jpg",
	}
}

func TestSaveAndCurrentRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	store := NewStore(database)
	ctx := context.Background()

	want := testSession()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got == nil {
		t.Fatal("expected a session, got nil")
	}
	if *got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", *got, want)
	}
}

func TestClearRemovesSession(t *testing.T) {
	database := db.NewTestDB(t)
	store := NewStore(database)
	ctx := context.Background()

	if err := store.Save(ctx, testSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	got, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil session after clear, got %+v", *got)
	}

	// Clearing an empty store is fine.
	if err := store.Clear(ctx); err != nil {
		t.Errorf("Clear on empty store: %v", err)
	}
}

func TestSaveReplacesPreviousSession(t *testing.T) {
	database := db.NewTestDB(t)
	store := NewStore(database)
	ctx := context.Background()

	first := testSession()
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := model.Session{Token: "other-token", UserID: 9, Email: "other@example.com"}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got == nil || got.UserID != 9 || got.Token != "other-token" {
		t.Errorf("expected second session, got %+v", got)
	}
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	database := db.NewTestDB(t)
	store := NewStore(database)

	if err := store.Save(context.Background(), model.Session{UserID: 7}); err == nil {
		t.Error("expected error saving session without token")
	}
}

func TestTokenIsSealedAtRest(t *testing.T) {
	database := db.NewTestDB(t)
	store := NewStore(database)
	ctx := context.Background()

	sess := testSession()
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var sealed []byte
	err := database.QueryRow(`SELECT sealed_token FROM session WHERE id = 1`).Scan(&sealed)
	if err != nil {
		t.Fatalf("reading sealed token: %v", err)
	}
	if bytes.Contains(sealed, []byte(sess.Token)) {
		t.Error("token stored in plain text")
	}
}

func TestWatchReplaysAndPushes(t *testing.T) {
	database := db.NewTestDB(t)
	store := NewStore(database)
	ctx := context.Background()

	ch, cancel, err := store.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer cancel()

	// Subscription replays the current (absent) value immediately.
	if got := <-ch; got != nil {
		t.Errorf("expected nil replay before sign-in, got %+v", *got)
	}

	sess := testSession()
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := <-ch; got == nil || got.UserID != sess.UserID {
		t.Errorf("expected saved session on watch channel, got %+v", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := <-ch; got != nil {
		t.Errorf("expected nil on watch channel after clear, got %+v", *got)
	}
}

func TestWatchCoalescesForSlowReaders(t *testing.T) {
	database := db.NewTestDB(t)
	store := NewStore(database)
	ctx := context.Background()

	ch, cancel, err := store.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer cancel()

	// Nobody reads the replay; two saves land on top of it.
	first := testSession()
	second := model.Session{Token: "latest", UserID: 42}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := <-ch
	if got == nil || got.UserID != 42 {
		t.Errorf("expected only the latest value, got %+v", got)
	}
}
