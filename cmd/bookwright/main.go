// Package main is the entry point for bookwright.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ekarat/bookwright/internal/app"
	"github.com/ekarat/bookwright/internal/export"
	"github.com/ekarat/bookwright/internal/search"
	"github.com/ekarat/bookwright/internal/tui"
	"github.com/ekarat/bookwright/internal/writer"
	"github.com/ekarat/bookwright/pkg/types"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bookwright",
	Short: "Write books chapter by chapter with AI assistance",
	Long: `Bookwright is a terminal application that plans, drafts, and revises
books with AI assistance. It keeps a library of books in a local
database and generates chapters from an outline, the story world, and
the previously written text.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().String("provider", "", "Generation provider (openai, gemini, local)")
	rootCmd.PersistentFlags().String("model", "", "Model override for the selected provider")

	newCmd.Flags().String("title", "", "Book title for non-interactive creation")
	newCmd.Flags().String("genre", "", "Genre for non-interactive creation")
	newCmd.Flags().String("language", "tr", "Book language")

	archiveCmd.Flags().Bool("list", false, "List the book's archive snapshots")
	assistCmd.Flags().Bool("rewrite", false, "Persist the reply as the new chapter draft")
	checkCmd.Flags().Int("chapter", 0, "Limit the check to a single chapter")
	exportCmd.Flags().String("out", "", "Output file path (.md or .html)")
	searchCmd.Flags().Int("limit", 10, "Maximum number of results")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(booksCmd)
	rootCmd.AddCommand(outlineCmd)
	rootCmd.AddCommand(worldCmd)
	rootCmd.AddCommand(glossaryCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(chaptersCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(assistCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(manuscriptCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reviseCmd)
	rootCmd.AddCommand(blurbCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(authCmd)

	authCmd.Flags().BoolP("list", "l", false, "List configured providers")
	authCmd.Flags().StringP("remove", "r", "", "Remove a provider configuration")
	authCmd.Flags().StringP("provider", "p", "", "Configure a specific provider")
}

// openWriter resolves a book reference and builds a Writer with a live
// provider behind it.
func openWriter(cmd *cobra.Command, application *app.App, bookRef string) (*writer.Writer, types.Book, error) {
	book, err := application.FindBook(bookRef)
	if err != nil {
		return nil, types.Book{}, err
	}

	providerName, _ := cmd.Flags().GetString("provider")
	model, _ := cmd.Flags().GetString("model")

	provider, err := application.Provider(cmd.Context(), providerName, model)
	if err != nil {
		return nil, types.Book{}, fmt.Errorf("failed to initialize provider: %w", err)
	}

	w, err := application.Writer(book.ID, provider)
	if err != nil {
		provider.Close()
		return nil, types.Book{}, err
	}
	return w, book, nil
}

// openOfflineWriter builds a Writer without a provider for commands
// that only touch the store.
func openOfflineWriter(application *app.App, bookRef string) (*writer.Writer, types.Book, error) {
	book, err := application.FindBook(bookRef)
	if err != nil {
		return nil, types.Book{}, err
	}
	return writer.New(application.Store, nil, book.ID), book, nil
}

func parseChapterIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 1 {
		return 0, fmt.Errorf("invalid chapter index %q", arg)
	}
	return index, nil
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new book in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		title, _ := cmd.Flags().GetString("title")

		var plan types.Plan
		if title != "" {
			genre, _ := cmd.Flags().GetString("genre")
			language, _ := cmd.Flags().GetString("language")
			plan = types.Plan{
				Title:       title,
				Genre:       genre,
				Language:    language,
				OutlineMode: types.OutlineChronological,
			}
		} else {
			plan, err = tui.RunPlanWizard()
			if err != nil {
				return err
			}
		}

		book, err := application.CreateBook(plan)
		if err != nil {
			return fmt.Errorf("failed to create book: %w", err)
		}

		fmt.Printf("'%s' oluşturuldu (id: %s)\n", book.Title, book.ID)
		fmt.Printf("Outline üretmek için: bookwright outline %s\n", book.ID)
		return nil
	},
}

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List the books in your library",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		books, err := application.ListBooks()
		if err != nil {
			return err
		}
		if len(books) == 0 {
			fmt.Println("Kütüphane boş. Yeni kitap: bookwright new")
			return nil
		}

		for _, b := range books {
			line := fmt.Sprintf("  %-44s %s", b.ID, b.Title)
			if b.Genre != "" {
				line += " (" + b.Genre + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var outlineCmd = &cobra.Command{
	Use:   "outline <book>",
	Short: "Generate the chapter outline from the writing plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, book, err := openWriter(cmd, application, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("'%s' için outline üretiliyor...\n", book.Title)
		items, err := w.GenerateOutline(cmd.Context())
		if err != nil {
			return err
		}

		for i, item := range items {
			fmt.Printf("%2d. %s\n", i+1, item.Title)
			if item.Summary != "" {
				fmt.Printf("    %s\n", item.Summary)
			}
		}
		return nil
	},
}

var worldCmd = &cobra.Command{
	Use:   "world <book>",
	Short: "Generate characters, locations, and story rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, book, err := openWriter(cmd, application, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("'%s' için dünya kuruluyor...\n", book.Title)
		world, err := w.GenerateWorld(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Karakterler: %d\n", len(world.Characters))
		for _, c := range world.Characters {
			fmt.Printf("  - %s\n", c.Name)
		}
		fmt.Printf("Mekanlar: %d\n", len(world.Locations))
		for _, l := range world.Locations {
			fmt.Printf("  - %s\n", l.Name)
		}
		fmt.Printf("Kurallar: %d\n", len(world.Rules))
		return nil
	},
}

var glossaryCmd = &cobra.Command{
	Use:   "glossary <book>",
	Short: "Generate the term glossary from the story so far",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, _, err := openWriter(cmd, application, args[0])
		if err != nil {
			return err
		}

		items, err := w.GenerateGlossary(cmd.Context())
		if err != nil {
			return err
		}
		for _, item := range items {
			fmt.Printf("  %s: %s\n", item.Term, item.Definition)
		}
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <book> <chapter>",
	Short: "Generate a chapter draft with live streaming",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseChapterIndex(args[1])
		if err != nil {
			return err
		}

		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, book, err := openWriter(cmd, application, args[0])
		if err != nil {
			return err
		}

		if n, err := w.ContextTokens(index); err == nil && n > 0 {
			fmt.Printf("Bağlam: %d token\n", n)
		}

		session, err := w.WriteChapter(context.Background(), index)
		if err != nil {
			return err
		}

		return tui.RunStream(session, book.Title)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <book> <chapter>",
	Short: "Edit a chapter draft with debounced autosave",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseChapterIndex(args[1])
		if err != nil {
			return err
		}

		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, book, err := openOfflineWriter(application, args[0])
		if err != nil {
			return err
		}

		var draft string
		if state, err := w.State(); err == nil {
			if ch, ok := state.ChapterAt(index); ok {
				draft = ch.Draft
			}
		}

		return tui.RunEditor(w, index, book.Title, draft)
	},
}

var chaptersCmd = &cobra.Command{
	Use:   "chapters <book>",
	Short: "List the book's chapters and their status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, book, err := openOfflineWriter(application, args[0])
		if err != nil {
			return err
		}

		state, err := w.State()
		if err != nil {
			return err
		}

		fmt.Printf("%s\n\n", book.Title)
		if len(state.Plan.Outline) == 0 && len(state.Chapters) == 0 {
			fmt.Println("Henüz outline yok. Üretmek için: bookwright outline " + book.ID)
			return nil
		}

		total := len(state.Plan.Outline)
		for _, ch := range state.Chapters {
			if ch.Index > total {
				total = ch.Index
			}
		}

		for i := 1; i <= total; i++ {
			title := state.OutlineItemAt(i).Title
			status := "—"
			if ch, ok := state.ChapterAt(i); ok && ch.HasDraft() {
				status = "taslak"
				if ch.Approved {
					status = "onaylı ✓"
				}
			}
			fmt.Printf("%3d. %-40s %s\n", i, title, status)
		}
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <book> <chapter>",
	Short: "Mark a chapter draft as approved",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseChapterIndex(args[1])
		if err != nil {
			return err
		}

		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, _, err := openOfflineWriter(application, args[0])
		if err != nil {
			return err
		}

		if err := w.Approve(index); err != nil {
			return err
		}
		fmt.Printf("Bölüm %d onaylandı.\n", index)
		return nil
	},
}

var assistCmd = &cobra.Command{
	Use:   "assist <book> <chapter> <instruction>",
	Short: "Ask the assistant about a chapter, optionally rewriting it",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseChapterIndex(args[1])
		if err != nil {
			return err
		}
		instruction := strings.Join(args[2:], " ")
		rewrite, _ := cmd.Flags().GetBool("rewrite")

		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, _, err := openWriter(cmd, application, args[0])
		if err != nil {
			return err
		}

		reply, err := w.Assist(cmd.Context(), index, instruction, rewrite)
		if err != nil {
			return err
		}

		fmt.Println(reply)
		if rewrite {
			fmt.Printf("\nBölüm %d güncellendi.\n", index)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <book>",
	Short: "Run a consistency check over the story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, _, err := openWriter(cmd, application, args[0])
		if err != nil {
			return err
		}

		chapter, _ := cmd.Flags().GetInt("chapter")

		var report string
		if chapter > 0 {
			report, err = w.QuickConsistency(cmd.Context(), chapter)
		} else {
			report, err = w.Consistency(cmd.Context())
		}
		if err != nil {
			return err
		}

		fmt.Println(report)
		return nil
	},
}

var manuscriptCmd = &cobra.Command{
	Use:   "manuscript <book>",
	Short: "Assemble the manuscript from the written chapters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, _, err := openOfflineWriter(application, args[0])
		if err != nil {
			return err
		}

		text, err := w.BuildManuscript()
		if err != nil {
			return err
		}

		fmt.Println(text)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <book>",
	Short: "Export the manuscript as markdown or standalone HTML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, book, err := openOfflineWriter(application, args[0])
		if err != nil {
			return err
		}

		text, err := w.Manuscript()
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = book.ID + ".html"
		}

		exporter := export.NewExporter()
		switch ext := strings.ToLower(filepath.Ext(out)); ext {
		case ".md", ".markdown", ".txt":
			err = exporter.WriteMarkdown(out, text)
		case ".html", ".htm", "":
			err = exporter.WriteHTML(out, book.Title, book.Language, text)
		default:
			return fmt.Errorf("unsupported export format %q (use .md or .html)", ext)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Dışa aktarıldı: %s\n", out)
		return nil
	},
}

var reviseCmd = &cobra.Command{
	Use:   "revise <book>",
	Short: "Run a style and language revision over the manuscript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, book, err := openWriter(cmd, application, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("'%s' revize ediliyor...\n", book.Title)
		revised, err := w.RevisionPass(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Revizyon tamamlandı (%d karakter).\n", len([]rune(revised)))
		return nil
	},
}

var blurbCmd = &cobra.Command{
	Use:   "blurb <book>",
	Short: "Produce review notes, a back-cover text, and a short summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, _, err := openWriter(cmd, application, args[0])
		if err != nil {
			return err
		}

		blurb, err := w.FinalBlurb(cmd.Context())
		if err != nil {
			return err
		}

		if len(blurb.Notes) > 0 {
			fmt.Println("Notlar:")
			for _, n := range blurb.Notes {
				fmt.Printf("  - %s\n", n)
			}
			fmt.Println()
		}
		if blurb.BackCover != "" {
			fmt.Println("Arka kapak:")
			fmt.Println(blurb.BackCover)
			fmt.Println()
		}
		if blurb.Short != "" {
			fmt.Println("Kısa özet:")
			fmt.Println(blurb.Short)
		}
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <book>",
	Short: "Snapshot the book universe into the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		w, book, err := openOfflineWriter(application, args[0])
		if err != nil {
			return err
		}

		if list, _ := cmd.Flags().GetBool("list"); list {
			entries, err := application.Store.ListArchive(book.ID)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("Arşiv boş.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%4d  %s  %s (%d bölüm, %d terim)\n",
					e.ID, e.CreatedAt.Format("2006-01-02 15:04"),
					e.Plan.Title, len(e.Plan.Outline), len(e.Glossary))
			}
			return nil
		}

		id, err := w.ArchiveUniverse()
		if err != nil {
			return err
		}
		fmt.Printf("Evren arşivlendi (kayıt %d).\n", id)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <book> <query>",
	Short: "Full-text search over chapters and the glossary",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		book, err := application.FindBook(args[0])
		if err != nil {
			return err
		}

		query := strings.Join(args[1:], " ")
		limit, _ := cmd.Flags().GetInt("limit")

		engine := search.NewEngine(application.Store.DB())
		results, err := engine.Search(book.ID, query, limit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("Sonuç yok.")
			return nil
		}

		for _, r := range results {
			switch r.Source {
			case search.SourceChapter:
				fmt.Printf("Bölüm %d: %s\n", r.Chapter, r.Snippet)
			case search.SourceGlossary:
				fmt.Printf("Sözlük [%s]: %s\n", r.Term, r.Snippet)
			}
		}
		return nil
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Configure generation provider credentials",
	RunE:  runAuthCmd,
}

func runAuthCmd(cmd *cobra.Command, args []string) error {
	listFlag, _ := cmd.Flags().GetBool("list")
	removeFlag, _ := cmd.Flags().GetString("remove")
	providerFlag, _ := cmd.Flags().GetString("provider")

	application, err := app.New()
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer application.Close()

	if listFlag {
		return listProviders(application)
	}
	if removeFlag != "" {
		return removeProvider(application, removeFlag)
	}

	providerName := providerFlag
	if providerName == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Select provider to configure").
					Options(
						huh.NewOption("OpenAI", "openai"),
						huh.NewOption("Google Gemini", "gemini"),
						huh.NewOption("Local (Ollama/LM Studio)", "local"),
					).
					Value(&providerName),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("provider selection failed: %w", err)
		}
	}

	return setupProvider(application, providerName)
}

func listProviders(application *app.App) error {
	config, err := application.Config.LoadGlobalConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Configured providers:")
	fmt.Println()

	providers := []struct {
		name  string
		label string
	}{
		{"openai", "OpenAI"},
		{"gemini", "Google Gemini"},
		{"local", "Local (Ollama/LM Studio)"},
	}

	hasAny := false
	for _, p := range providers {
		providerConfig, exists := config.Providers[p.name]
		if !exists || (providerConfig.APIKey == "" && providerConfig.BaseURL == "") {
			continue
		}

		hasAny = true
		defaultMark := ""
		if config.Defaults.Provider == p.name {
			defaultMark = " (default)"
		}
		fmt.Printf("  %s%s\n", p.label, defaultMark)

		if providerConfig.APIKey != "" {
			fmt.Printf("    API Key: %s\n", maskAPIKey(providerConfig.APIKey))
		}
		if providerConfig.DefaultModel != "" {
			fmt.Printf("    Model: %s\n", providerConfig.DefaultModel)
		}
		if providerConfig.BaseURL != "" {
			fmt.Printf("    Base URL: %s\n", providerConfig.BaseURL)
		}
		fmt.Println()
	}

	if !hasAny {
		fmt.Println("  No providers configured.")
		fmt.Println()
		fmt.Println("Run 'bookwright auth' to configure a provider.")
	}
	return nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func removeProvider(application *app.App, providerName string) error {
	config, err := application.Config.LoadGlobalConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, exists := config.Providers[providerName]; !exists {
		return fmt.Errorf("provider %q is not configured", providerName)
	}
	delete(config.Providers, providerName)

	if config.Defaults.Provider == providerName {
		config.Defaults.Provider = ""
		for name := range config.Providers {
			config.Defaults.Provider = name
			break
		}
	}

	if err := application.Config.SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Printf("Provider %q removed.\n", providerName)
	return nil
}

func setupProvider(application *app.App, providerName string) error {
	config, err := application.Config.LoadGlobalConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if config.Providers == nil {
		config.Providers = make(map[string]*types.ProviderConfig)
	}

	providerConfig := config.Providers[providerName]
	if providerConfig == nil {
		providerConfig = &types.ProviderConfig{}
	}

	switch providerName {
	case "openai":
		err = setupKeyedProvider(providerConfig, "OpenAI API Key", "sk-...", []huh.Option[string]{
			huh.NewOption("GPT-4o (recommended)", "gpt-4o"),
			huh.NewOption("GPT-4o Mini", "gpt-4o-mini"),
			huh.NewOption("GPT-4 Turbo", "gpt-4-turbo"),
			huh.NewOption("GPT-3.5 Turbo", "gpt-3.5-turbo"),
		})
	case "gemini":
		err = setupKeyedProvider(providerConfig, "Gemini API Key", "Get from ai.google.dev", []huh.Option[string]{
			huh.NewOption("Gemini 2.5 Flash (recommended)", "gemini-2.5-flash"),
			huh.NewOption("Gemini 2.5 Pro", "gemini-2.5-pro"),
			huh.NewOption("Gemini 2.0 Flash", "gemini-2.0-flash"),
		})
	case "local":
		err = setupLocal(providerConfig)
	default:
		return fmt.Errorf("unknown provider: %s (supported: openai, gemini, local)", providerName)
	}
	if err != nil {
		return err
	}

	config.Providers[providerName] = providerConfig

	var setDefault bool
	defaultForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Set as default provider?").
				Value(&setDefault),
		),
	)
	if err := defaultForm.Run(); err != nil {
		return fmt.Errorf("default selection failed: %w", err)
	}
	if setDefault {
		config.Defaults.Provider = providerName
	}

	if err := application.Config.SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("\n✓ %s configured successfully\n", providerName)
	return nil
}

func setupKeyedProvider(config *types.ProviderConfig, keyTitle, keyPlaceholder string, models []huh.Option[string]) error {
	var apiKey, model string

	currentKey := ""
	if config.APIKey != "" {
		currentKey = " (current: " + maskAPIKey(config.APIKey) + ")"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(keyTitle+currentKey).
				Placeholder(keyPlaceholder).
				Value(&apiKey),
			huh.NewSelect[string]().
				Title("Default model").
				Options(models...).
				Value(&model),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("provider setup failed: %w", err)
	}

	if apiKey != "" {
		config.APIKey = apiKey
	}
	if model != "" {
		config.DefaultModel = model
	}
	return nil
}

func setupLocal(config *types.ProviderConfig) error {
	var baseURL, model string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Base URL").
				Placeholder("http://localhost:11434/v1").
				Value(&baseURL),
			huh.NewInput().
				Title("Model name").
				Placeholder("llama3, mistral, etc.").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("model name is required")
					}
					return nil
				}).
				Value(&model),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("local setup failed: %w", err)
	}

	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.DefaultModel = model
	return nil
}
