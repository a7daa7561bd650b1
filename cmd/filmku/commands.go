package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/andikarhm/filmku/internal/catalog"
	"github.com/andikarhm/filmku/internal/db"
	"github.com/andikarhm/filmku/internal/filmapi"
	"github.com/andikarhm/filmku/internal/imaging"
	"github.com/andikarhm/filmku/internal/model"
	"github.com/andikarhm/filmku/internal/session"
)

const opTimeout = 30 * time.Second

// app wires the catalog store to its collaborators for one CLI invocation.
type app struct {
	store *catalog.Store
	close func()
}

// newApp opens the local database and wires up the store. requireAPI is false
// for commands that only touch local state (whoami, logout).
func newApp(ctx context.Context, apiURL, dbPath string, requireAPI bool) (*app, error) {
	if apiURL == "" {
		apiURL = os.Getenv("FILMKU_API_URL")
	}
	if apiURL == "" && requireAPI {
		return nil, fmt.Errorf("catalog service URL not set (use -api or FILMKU_API_URL)")
	}

	if dbPath == "" {
		dbPath = os.Getenv("FILMKU_DB")
	}
	if dbPath == "" {
		var err error
		dbPath, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	database, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, err
	}

	store, err := catalog.NewStore(ctx, filmapi.NewClient(apiURL), session.NewStore(database), slog.Default())
	if err != nil {
		database.Close()
		return nil, err
	}

	return &app{
		store: store,
		close: func() {
			store.Close()
			database.Close()
		},
	}, nil
}

// commonFlags registers the flags every command accepts.
func commonFlags(fs *flag.FlagSet) (apiURL, dbPath *string) {
	apiURL = fs.String("api", "", "catalog service base URL (default: FILMKU_API_URL)")
	dbPath = fs.String("db", "", "local database path (default: FILMKU_DB or config dir)")
	return apiURL, dbPath
}

// pendingError drains the store's pending error message, mirroring how the
// app surfaced an error once and then cleared it.
func pendingError(store *catalog.Store) error {
	msg := store.LastError()
	if msg == "" {
		return nil
	}
	store.ClearError()
	return fmt.Errorf("%s", msg)
}

// refresh loads the film list and converts a Failed status into an error.
func refresh(ctx context.Context, store *catalog.Store) error {
	store.Refresh(ctx)
	if store.Status() == model.StatusFailed {
		return pendingError(store)
	}
	return nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	apiURL, dbPath := commonFlags(fs)
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	a, err := newApp(ctx, *apiURL, *dbPath, true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := refresh(ctx, a.store); err != nil {
		return err
	}

	var userID *int64
	if sess := a.store.Session(); sess.SignedIn() {
		userID = &sess.UserID
	}

	films := a.store.VisibleFor(userID)
	if len(films) == 0 {
		fmt.Println("No films in the catalog.")
		return nil
	}

	for _, f := range films {
		marker := " "
		if userID != nil && f.EditableBy(*userID) {
			marker = "*"
		}
		fmt.Printf("%s %4d  %-30s  %s\n", marker, f.ID, f.Title, f.Cast)
		if f.Description != "" {
			fmt.Printf("        %s\n", f.Description)
		}
	}
	if userID != nil {
		fmt.Println("\n* films you can edit or delete")
	}
	return nil
}

func cmdAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	apiURL, dbPath := commonFlags(fs)
	title := fs.String("title", "", "film title (required)")
	cast := fs.String("cast", "", "film cast")
	desc := fs.String("desc", "", "film description")
	imagePath := fs.String("image", "", "poster image file, JPEG or PNG (required)")
	fs.Parse(args)

	if *imagePath == "" {
		return fmt.Errorf("-image is required")
	}
	image, err := imaging.PrepareFile(*imagePath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	a, err := newApp(ctx, *apiURL, *dbPath, true)
	if err != nil {
		return err
	}
	defer a.close()

	a.store.Create(ctx, *title, *cast, *desc, image)
	if err := pendingError(a.store); err != nil {
		return err
	}

	fmt.Printf("Added %q.\n", *title)
	return nil
}

func cmdEdit(args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	apiURL, dbPath := commonFlags(fs)
	id := fs.Int64("id", 0, "film id (required)")
	title := fs.String("title", "", "new title (required)")
	cast := fs.String("cast", "", "new cast")
	desc := fs.String("desc", "", "new description")
	imagePath := fs.String("image", "", "new poster image; omit to keep the current one")
	fs.Parse(args)

	if *id == 0 {
		return fmt.Errorf("-id is required")
	}

	var image []byte
	if *imagePath != "" {
		var err error
		image, err = imaging.PrepareFile(*imagePath)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	a, err := newApp(ctx, *apiURL, *dbPath, true)
	if err != nil {
		return err
	}
	defer a.close()

	// Ownership is checked against the fetched list before the write.
	if err := refresh(ctx, a.store); err != nil {
		return err
	}

	a.store.Update(ctx, *id, *title, *cast, *desc, image)
	if err := pendingError(a.store); err != nil {
		return err
	}

	fmt.Printf("Updated film %d.\n", *id)
	return nil
}

func cmdDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	apiURL, dbPath := commonFlags(fs)
	id := fs.Int64("id", 0, "film id (required)")
	fs.Parse(args)

	if *id == 0 {
		return fmt.Errorf("-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	a, err := newApp(ctx, *apiURL, *dbPath, true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := refresh(ctx, a.store); err != nil {
		return err
	}

	a.store.Delete(ctx, *id)
	if err := pendingError(a.store); err != nil {
		return err
	}

	fmt.Printf("Deleted film %d.\n", *id)
	return nil
}

func cmdLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	apiURL, dbPath := commonFlags(fs)
	token := fs.String("token", "", "Google ID token (default: FILMKU_ID_TOKEN)")
	fs.Parse(args)

	idToken := *token
	if idToken == "" {
		idToken = os.Getenv("FILMKU_ID_TOKEN")
	}
	if idToken == "" {
		return fmt.Errorf("no ID token given (use -token or FILMKU_ID_TOKEN)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	a, err := newApp(ctx, *apiURL, *dbPath, true)
	if err != nil {
		return err
	}
	defer a.close()

	a.store.SignIn(ctx, idToken)
	if err := pendingError(a.store); err != nil {
		return err
	}

	sess := a.store.Session()
	if sess.Name != "" {
		fmt.Printf("Signed in as %s <%s>.\n", sess.Name, sess.Email)
	} else {
		fmt.Printf("Signed in as %s.\n", sess.Email)
	}
	return nil
}

func cmdLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	apiURL, dbPath := commonFlags(fs)
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	a, err := newApp(ctx, *apiURL, *dbPath, false)
	if err != nil {
		return err
	}
	defer a.close()

	a.store.SignOut(ctx)
	if err := pendingError(a.store); err != nil {
		return err
	}

	fmt.Println("Signed out.")
	return nil
}

func cmdWhoami(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	apiURL, dbPath := commonFlags(fs)
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	a, err := newApp(ctx, *apiURL, *dbPath, false)
	if err != nil {
		return err
	}
	defer a.close()

	sess := a.store.Session()
	if !sess.SignedIn() {
		fmt.Println("Not signed in.")
		return nil
	}

	fmt.Printf("User ID: %d\n", sess.UserID)
	if sess.Name != "" {
		fmt.Printf("Name:    %s\n", sess.Name)
	}
	if sess.Email != "" {
		fmt.Printf("Email:   %s\n", sess.Email)
	}
	if sess.PhotoURL != "" {
		fmt.Printf("Photo:   %s\n", sess.PhotoURL)
	}
	return nil
}
