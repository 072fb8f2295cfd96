// Command phosphora finds Bible references in text and shows their verses.
package main

import (
	"github.com/alecthomas/kong"
)

const version = "0.4.0"

// Globals are flags shared by every command. They override the settings file.
type Globals struct {
	ConfigPath  string `name:"config" help:"Settings file (default: user config dir)" type:"path" env:"PHOSPHORA_CONFIG"`
	LibraryPath string `name:"library-db" help:"Offline library database (default: user cache dir)" type:"path" env:"PHOSPHORA_LIBRARY"`
	Translation string `name:"translation" short:"t" help:"Bible translation, e.g. KJV" env:"PHOSPHORA_TRANSLATION"`
	Theme       string `name:"theme" help:"Color theme" env:"PHOSPHORA_THEME"`
	LogLevel    string `name:"log-level" help:"Log level (debug, info, warn, error)" env:"PHOSPHORA_LOG_LEVEL"`
	LogFormat   string `name:"log-format" help:"Log format (json, text)" env:"PHOSPHORA_LOG_FORMAT"`
}

// CLI defines the command-line interface for phosphora.
var CLI struct {
	Globals

	TUI          TUICmd          `cmd:"" name:"tui" default:"withargs" help:"Open the terminal reader"`
	Scan         ScanCmd         `cmd:"" help:"List the references found in text"`
	Lookup       LookupCmd       `cmd:"" help:"Print the text of one or more references"`
	Translations TranslationsCmd `cmd:"" help:"List available translations"`
	Download     DownloadCmd     `cmd:"" help:"Download translations for offline use"`
	Library      LibraryGroup    `cmd:"" help:"Manage downloaded translations"`
	Config       ConfigCmd       `cmd:"" help:"Show or save the effective settings"`
	Version      VersionCmd      `cmd:"" help:"Print version information"`
}

// LibraryGroup contains offline library operations.
type LibraryGroup struct {
	List   LibraryListCmd   `cmd:"" help:"List downloaded translations"`
	Remove LibraryRemoveCmd `cmd:"" help:"Remove a downloaded translation"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("phosphora"),
		kong.Description("Phosphora - find Bible references in text and read them"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
