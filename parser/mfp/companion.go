package mfp

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/QEStudios/ModLoader/parser"
)

// CompanionNames returns the candidate sample file names for a song file, in the order they're tried.
// The first three characters of the base name are replaced with "smp" (so "mfp.title" becomes "smp.title");
// if the base name contains a '-', the same name with everything from the '-' replaced by ".set" follows.
func CompanionNames(name string) []string {
	dir, base := path.Split(name)
	if len(base) < 3 {
		return nil
	}
	prefix := "smp"
	if strings.ToUpper(base[:3]) == base[:3] && strings.ToLower(base[:3]) != base[:3] {
		prefix = "SMP"
	}
	smp := prefix + base[3:]
	names := []string{dir + smp}
	if i := strings.IndexByte(smp, '-'); i >= 0 {
		names = append(names, dir+smp[:i]+".set")
	}
	return names
}

// OpenCompanion opens the first companion sample file that exists in cfg.FS.
// The caller must close the returned file.
func OpenCompanion(cfg parser.Config) (fs.File, string, error) {
	if cfg.FS == nil || cfg.Name == "" {
		return nil, "", fmt.Errorf("no file system to look for the sample file in: %w", parser.ErrResourceUnavailable)
	}
	names := CompanionNames(cfg.Name)
	for _, name := range names {
		f, err := cfg.FS.Open(name)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("can't open sample file %s: %w: %w", name, parser.ErrResourceUnavailable, err)
		}
	}
	return nil, "", fmt.Errorf("sample file for %s is missing (tried %s): %w", cfg.Name, strings.Join(names, ", "), parser.ErrResourceUnavailable)
}
