package app

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekarat/bookwright/pkg/types"
)

func newTestConfigManager(t *testing.T) *ConfigManager {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cm, err := NewConfigManager()
	require.NoError(t, err)
	return cm
}

func TestLoadGlobalConfigDefaults(t *testing.T) {
	cm := newTestConfigManager(t)

	config, err := cm.LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "openai", config.Defaults.Provider)
	assert.Equal(t, 1200, config.Writing.AutosaveDelayMs)
	assert.NotContains(t, config.LibraryDB, "~")
}

func TestConfigRoundTrip(t *testing.T) {
	cm := newTestConfigManager(t)

	config := types.DefaultGlobalConfig()
	config.Providers["openai"] = &types.ProviderConfig{
		APIKey:       "sk-test",
		DefaultModel: "gpt-4o-mini",
	}
	config.Defaults.Owner = "ayla"
	require.NoError(t, cm.SaveGlobalConfig(config))

	// A fresh manager reads the saved file from disk.
	fresh, err := NewConfigManager()
	require.NoError(t, err)
	loaded, err := fresh.LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "ayla", loaded.Defaults.Owner)
	assert.Equal(t, "sk-test", loaded.Providers["openai"].APIKey)
}

func TestConfigEnvVarExpansion(t *testing.T) {
	cm := newTestConfigManager(t)
	t.Setenv("BOOKWRIGHT_TEST_KEY", "sk-from-env")

	config := types.DefaultGlobalConfig()
	config.Providers["openai"] = &types.ProviderConfig{
		APIKey:       "${BOOKWRIGHT_TEST_KEY}",
		DefaultModel: "gpt-4o-mini",
	}
	require.NoError(t, cm.SaveGlobalConfig(config))

	fresh, err := NewConfigManager()
	require.NoError(t, err)
	loaded, err := fresh.LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", loaded.Providers["openai"].APIKey)
}

func TestResolveAISettings(t *testing.T) {
	cm := newTestConfigManager(t)

	config := types.DefaultGlobalConfig()
	config.Defaults.Provider = "local"
	config.Providers["local"] = &types.ProviderConfig{
		DefaultModel: "llama3",
		BaseURL:      "http://localhost:11434/v1",
	}
	config.Providers["openai"] = &types.ProviderConfig{
		APIKey:       "sk-test",
		DefaultModel: "gpt-4o-mini",
	}
	require.NoError(t, cm.SaveGlobalConfig(config))

	t.Run("default provider", func(t *testing.T) {
		settings, err := cm.ResolveAISettings("", "")
		require.NoError(t, err)
		assert.Equal(t, "local", settings.Provider)
		assert.Equal(t, "llama3", settings.Model)
		assert.Equal(t, "http://localhost:11434/v1", settings.BaseURL)
	})

	t.Run("explicit provider and model", func(t *testing.T) {
		settings, err := cm.ResolveAISettings("openai", "gpt-4o")
		require.NoError(t, err)
		assert.Equal(t, "openai", settings.Provider)
		assert.Equal(t, "gpt-4o", settings.Model)
		assert.Equal(t, "sk-test", settings.APIKey)
	})

	t.Run("unconfigured provider passes through", func(t *testing.T) {
		settings, err := cm.ResolveAISettings("gemini", "gemini-2.5-flash")
		require.NoError(t, err)
		assert.Equal(t, "gemini", settings.Provider)
		assert.Empty(t, settings.APIKey)
	})
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	cm, err := NewConfigManager()
	require.NoError(t, err)
	config := types.DefaultGlobalConfig()
	config.LibraryDB = filepath.Join(t.TempDir(), "library.db")
	config.Defaults.Owner = "ayla"
	require.NoError(t, cm.SaveGlobalConfig(config))

	a, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestCreateAndFindBook(t *testing.T) {
	a := newTestApp(t)

	book, err := a.CreateBook(types.Plan{
		Title:    "Sisli Liman",
		Genre:    "polisiye",
		Language: "tr",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(book.ID, "sisli-liman-"))
	assert.Equal(t, "ayla", book.OwnerID)

	// The initial plan is persisted with the book.
	plan, err := a.Store.GetPlan(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sisli Liman", plan.Title)

	byID, err := a.FindBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.ID, byID.ID)

	byTitle, err := a.FindBook("sisli liman")
	require.NoError(t, err)
	assert.Equal(t, book.ID, byTitle.ID)

	_, err = a.FindBook("yok böyle kitap")
	assert.Error(t, err)
}

func TestListBooksScopedToOwner(t *testing.T) {
	a := newTestApp(t)

	_, err := a.CreateBook(types.Plan{Title: "Benim Kitabım"})
	require.NoError(t, err)
	require.NoError(t, a.Store.CreateBook(types.Book{ID: "other", Title: "Other", OwnerID: "kerem"}))

	books, err := a.ListBooks()
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Benim Kitabım", books[0].Title)
}

func TestBookID(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Sisli Liman", "sisli-liman-"},
		{" Çürük Elma! ", "çürük-elma-"},
		{"***", "book-"},
		{"", "book-"},
	}

	for _, tt := range tests {
		id := bookID(tt.title)
		assert.True(t, strings.HasPrefix(id, tt.want), "bookID(%q) = %q", tt.title, id)
		// 4 random bytes hex encoded.
		assert.Len(t, id[strings.LastIndex(id, "-")+1:], 8)
	}

	// Distinct calls produce distinct ids.
	assert.NotEqual(t, bookID("Aynı"), bookID("Aynı"))
}
