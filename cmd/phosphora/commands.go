package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/IsraelGboluwaga/phosphora/internal/bible"
	"github.com/IsraelGboluwaga/phosphora/internal/coordinator"
	"github.com/IsraelGboluwaga/phosphora/internal/detector"
	"github.com/IsraelGboluwaga/phosphora/internal/settings"
	"github.com/IsraelGboluwaga/phosphora/internal/theme"
	"github.com/IsraelGboluwaga/phosphora/internal/ui"
)

// readInput reads a file, or stdin for "-".
func readInput(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// TUICmd opens the terminal reader.
type TUICmd struct {
	File string `arg:"" optional:"" help:"Text file to scan (- for stdin)"`
}

func (c *TUICmd) Run(g *Globals) error {
	text, err := readInput(c.File)
	if err != nil {
		return err
	}

	a, err := g.open(true)
	if err != nil {
		return err
	}
	defer a.Close()

	model := ui.NewModel(ui.Config{
		Coordinator:  a.coordinator(),
		Detector:     a.detector(),
		Translations: a.client,
		Theme:        theme.GetTheme(a.settings.Theme),
		Text:         text,
		Logger:       a.logger.With("component", "ui"),
	})
	defer model.Close()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// ScanCmd lists the references detected in text.
type ScanCmd struct {
	File string `arg:"" default:"-" help:"Text file to scan (- for stdin)"`
	JSON bool   `help:"Print matches as JSON"`
}

func (c *ScanCmd) Run(g *Globals) error {
	text, err := readInput(c.File)
	if err != nil {
		return err
	}
	s, err := g.settings()
	if err != nil {
		return err
	}

	matches := detector.New(detector.WithPolicy(s.Policy())).Detect(text)
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}

	for _, m := range matches {
		fmt.Printf("%6d  %-24s %s\n", m.Offset, m.Key(), m.Raw)
	}
	fmt.Printf("%d reference(s)\n", len(matches))
	return nil
}

// LookupCmd prints the text of references.
type LookupCmd struct {
	References []string `arg:"" help:"References such as \"John 3:16\" or \"Ps 23\""`
}

func (c *LookupCmd) Run(g *Globals) error {
	a, err := g.open(false)
	if err != nil {
		return err
	}
	defer a.Close()

	refs, err := c.parse(a.detector())
	if err != nil {
		return err
	}

	coord := a.coordinator()
	ctx := context.Background()
	if err := coord.Prefetch(ctx, refs); err != nil {
		a.logger.Debug("prefetch incomplete", "error", err)
	}

	var failed int
	for i, ref := range refs {
		tab := coordinator.TabID(i + 1)
		if err := coord.Resolve(ctx, tab, ref); err != nil {
			return err
		}
		coord.Wait()
		if !printState(os.Stdout, coord.DisplayState(tab)) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(refs))
	}
	return nil
}

// parse accepts canonical keys and falls back to detection for free text.
func (c *LookupCmd) parse(det *detector.Detector) ([]bible.Reference, error) {
	var refs []bible.Reference
	for _, arg := range c.References {
		if ref, err := bible.ParseKey(arg); err == nil {
			refs = append(refs, ref)
			continue
		}
		found := det.Detect(arg)
		if len(found) == 0 {
			return nil, fmt.Errorf("no reference found in %q", arg)
		}
		refs = append(refs, found...)
	}
	return refs, nil
}

// printState writes a display state and reports whether it holds content.
func printState(w io.Writer, state coordinator.DisplayState) bool {
	switch st := state.(type) {
	case coordinator.ShowingVerse:
		fmt.Fprintf(w, "%s (%s)\n%s\n\n", st.Content.Reference, st.Content.Translation, st.Content.Text)
		return true
	case coordinator.ShowingChapter:
		fmt.Fprintf(w, "%s %d (%s)\n", st.Content.Book, st.Content.Chapter, st.Content.Translation)
		for _, v := range st.Content.Verses {
			marker := " "
			if st.Highlighted(v.Verse) {
				marker = ">"
			}
			fmt.Fprintf(w, "%s%3d %s\n", marker, v.Verse, v.Text)
		}
		fmt.Fprintln(w)
		return true
	case coordinator.Error:
		fmt.Fprintf(os.Stderr, "%s: %s\n", st.Reference.Key(), st.Message)
		return false
	default:
		return false
	}
}

// TranslationsCmd lists the English translations offered by bolls.life.
type TranslationsCmd struct{}

func (c *TranslationsCmd) Run(g *Globals) error {
	a, err := g.open(false)
	if err != nil {
		return err
	}
	defer a.Close()

	translations, err := a.client.GetTranslations(context.Background())
	if err != nil {
		return err
	}
	for _, t := range translations {
		marker := " "
		if a.library != nil && a.library.IsCached(t.ShortName) {
			marker = "*"
		}
		fmt.Printf("%s %-10s %s\n", marker, t.ShortName, t.FullName)
	}
	return nil
}

// DownloadCmd imports translations into the offline library.
type DownloadCmd struct {
	Translations []string `arg:"" help:"Translation short names, e.g. KJV"`
	Refresh      bool     `help:"Download again even when already cached"`
}

func (c *DownloadCmd) Run(g *Globals) error {
	a, err := g.open(false)
	if err != nil {
		return err
	}
	defer a.Close()

	lib, err := a.requireLibrary()
	if err != nil {
		return err
	}

	ctx := context.Background()
	var errs []error
	for _, tr := range c.Translations {
		tr = strings.ToUpper(tr)
		if c.Refresh {
			err = lib.Refresh(ctx, tr)
		} else {
			err = lib.Download(ctx, tr)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tr, err))
			continue
		}
		fmt.Printf("%s ready\n", tr)
	}
	return errors.Join(errs...)
}

// LibraryListCmd lists downloaded translations.
type LibraryListCmd struct{}

func (c *LibraryListCmd) Run(g *Globals) error {
	a, err := g.open(false)
	if err != nil {
		return err
	}
	defer a.Close()

	lib, err := a.requireLibrary()
	if err != nil {
		return err
	}
	names, err := lib.ListCached(context.Background())
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}

	size, err := lib.Size()
	if err != nil {
		return err
	}
	fmt.Printf("%d translation(s), %.1f MB\n", len(names), float64(size)/(1<<20))
	return nil
}

// LibraryRemoveCmd deletes a downloaded translation.
type LibraryRemoveCmd struct {
	Translation string `arg:"" help:"Translation short name"`
}

func (c *LibraryRemoveCmd) Run(g *Globals) error {
	a, err := g.open(false)
	if err != nil {
		return err
	}
	defer a.Close()

	lib, err := a.requireLibrary()
	if err != nil {
		return err
	}
	return lib.Remove(context.Background(), strings.ToUpper(c.Translation))
}

// ConfigCmd prints the effective settings, optionally saving them.
type ConfigCmd struct {
	Save bool `help:"Write the effective settings to the settings file"`
}

func (c *ConfigCmd) Run(g *Globals) error {
	s, err := g.settings()
	if err != nil {
		return err
	}

	if c.Save {
		if g.ConfigPath != "" {
			err = settings.SaveTo(g.ConfigPath, s)
		} else {
			err = settings.Save(s)
		}
		if err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("phosphora %s\n", version)
	return nil
}
