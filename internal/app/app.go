package app

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ekarat/bookwright/internal/llm"
	"github.com/ekarat/bookwright/internal/llm/adapters"
	"github.com/ekarat/bookwright/internal/store"
	"github.com/ekarat/bookwright/internal/token"
	"github.com/ekarat/bookwright/internal/writer"
	"github.com/ekarat/bookwright/pkg/types"
)

// App wires the configuration, the library store, and per-book writers.
type App struct {
	Config *ConfigManager
	Store  *store.SQLiteStore
}

// New creates a new application instance, opening the library database
// at the configured path.
func New() (*App, error) {
	configManager, err := NewConfigManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}

	config, err := configManager.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}

	st, err := store.Open(config.LibraryDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	return &App{
		Config: configManager,
		Store:  st,
	}, nil
}

// CreateBook creates a new book in the library and saves its initial
// writing plan.
func (a *App) CreateBook(plan types.Plan) (types.Book, error) {
	config, err := a.Config.LoadGlobalConfig()
	if err != nil {
		return types.Book{}, err
	}

	now := time.Now()
	book := types.Book{
		ID:        bookID(plan.Title),
		Title:     plan.Title,
		Genre:     plan.Genre,
		Language:  plan.Language,
		Tone:      plan.Tone,
		OwnerID:   config.Defaults.Owner,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.Store.CreateBook(book); err != nil {
		return types.Book{}, err
	}
	if err := a.Store.SavePlan(book.ID, plan); err != nil {
		return types.Book{}, err
	}
	return book, nil
}

// ListBooks returns the library contents for the configured owner.
func (a *App) ListBooks() ([]types.Book, error) {
	config, err := a.Config.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	return a.Store.ListBooks(config.Defaults.Owner)
}

// FindBook resolves a book by id or by exact title.
func (a *App) FindBook(ref string) (types.Book, error) {
	if book, err := a.Store.GetBook(ref); err == nil {
		return book, nil
	}

	books, err := a.ListBooks()
	if err != nil {
		return types.Book{}, err
	}
	for _, b := range books {
		if strings.EqualFold(b.Title, ref) {
			return b, nil
		}
	}
	return types.Book{}, fmt.Errorf("book %q not found", ref)
}

// Provider builds the generation provider for a book session. An empty
// providerName uses the configured default.
func (a *App) Provider(ctx context.Context, providerName, model string) (llm.Provider, error) {
	settings, err := a.Config.ResolveAISettings(providerName, model)
	if err != nil {
		return nil, err
	}
	return adapters.FromSettings(ctx, settings)
}

// Writer builds a Writer for the given book with the configured
// generation tuning.
func (a *App) Writer(bookID string, p llm.Provider) (*writer.Writer, error) {
	config, err := a.Config.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}

	opts := []writer.Option{
		writer.WithTemperature(config.Writing.Temperature),
	}
	if config.Writing.ContextWindow > 0 {
		opts = append(opts, writer.WithContextWindow(config.Writing.ContextWindow))
	}
	if config.Writing.AutosaveDelayMs > 0 {
		opts = append(opts, writer.WithAutosaveDelay(time.Duration(config.Writing.AutosaveDelayMs)*time.Millisecond))
	}
	if counter, err := token.NewCounter(p.Capabilities().TokenizerType); err == nil {
		opts = append(opts, writer.WithTokenCounter(counter))
	}

	return writer.New(a.Store, p, bookID, opts...), nil
}

// Close cleans up application resources.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// bookID derives a stable id from the title slug plus a random suffix.
func bookID(title string) string {
	var slug strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			slug.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			slug.WriteRune('-')
		}
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		binary.BigEndian.PutUint32(suffix, uint32(time.Now().UnixNano()))
	}

	s := strings.Trim(slug.String(), "-")
	if s == "" {
		s = "book"
	}
	if runes := []rune(s); len(runes) > 40 {
		s = string(runes[:40])
	}
	return s + "-" + hex.EncodeToString(suffix)
}
