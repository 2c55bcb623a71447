package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	modloader "github.com/QEStudios/ModLoader"
	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/parser/sample"
	"github.com/QEStudios/ModLoader/song"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"github.com/sqweek/dialog"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "", log.Ldate|log.Ltime)

	// Get the current working directory.
	cwd, err := os.Getwd()
	if err != nil {
		logger.Fatalf("failed to get current working directory: %v", err)
	}

	var (
		dump      bool
		patterns  bool
		noSamples bool
		format    string
	)
	pflag.BoolVarP(&dump, "dump", "d", false, "dump the decoded song structure")
	pflag.BoolVarP(&patterns, "patterns", "p", false, "print every pattern")
	pflag.BoolVarP(&noSamples, "no-samples", "n", false, "skip sample data instead of decoding it")
	pflag.StringVarP(&format, "format", "f", "", "force a format (liq, mfp, pt3) instead of detecting it")
	pflag.Parse()

	// Get the path of the module file.
	path, err := choosePath(cwd, pflag.Args())
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			logger.Printf("User cancelled the file dialog")
			os.Exit(1)
		}
		logger.Fatalf("failed to determine file path: %v", err)
	}

	opts := modloader.Options{
		Logger: logger,
		Format: format,
	}
	if noSamples {
		opts.Samples = sample.Skip{}
	}

	// Companion files are looked up next to the module.
	result, err := modloader.Load(os.DirFS(filepath.Dir(path)), filepath.Base(path), opts)
	if err != nil {
		if parser.IsCorrupt(err) {
			logger.Fatalf("%s is damaged: %v", path, err)
		}
		logger.Fatalf("load error: %v", err)
	}
	for _, w := range result.Warnings {
		logger.Printf("warning: %v", w)
	}

	s := result.Song
	fmt.Println(s)

	if patterns {
		if err := printPatterns(s); err != nil {
			logger.Fatalf("error printing patterns: %v", err)
		}
	}
	if dump {
		spew.Dump(s)
	}
}

func printPatterns(s *song.Song) error {
	for i, p := range s.Patterns {
		if p.Empty() {
			fmt.Printf("Pattern %d: empty\n", i)
			continue
		}
		fmt.Printf("Pattern %d %q (%d rows):\n", i, p.Name, p.Rows)
		if err := song.WritePattern(os.Stdout, p, 2); err != nil {
			return err
		}
	}
	return nil
}

// choosePath picks the module to load: the first argument if there is one, else a file picked in a native dialog.
// Companion sample files are resolved later relative to the returned path.
func choosePath(cwd string, args []string) (string, error) {
	if len(args) > 0 {
		path := args[0]
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("cannot get absolute path: %w", err)
		}
		if err := validatePath(absPath); err != nil {
			return "", fmt.Errorf("passed argument is not a valid path: %w", err)
		}
		return absPath, nil
	}

	path, err := dialog.
		File().
		Title("Open tracker module").
		Filter("Tracker modules (*.liq, *.mfp, *.pt3, *.zst)", "liq", "mfp", "pt3", "zst").
		Filter("All files", "*").
		SetStartDir(cwd).
		Load()
	if err != nil {
		// main treats dialog.ErrCancelled as a quiet exit.
		return "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot get absolute path: %w", err)
	}

	// Some backends report a dismissed dialog as an empty selection.
	if absPath == "" {
		return "", dialog.ErrCancelled
	}
	if err := validatePath(absPath); err != nil {
		return "", fmt.Errorf("dialog selection invalid: %w", err)
	}
	return absPath, nil
}

// validatePath checks that p exists and is not a directory.
// Module names mix prefix and suffix conventions ("mfp.title", "title.liq"), so the name itself isn't checked.
func validatePath(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", p)
	}
	return nil
}
