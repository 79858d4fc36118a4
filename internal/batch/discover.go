package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabclean-cli/internal/reader"
	"github.com/KaramelBytes/tabclean-cli/internal/table"
)

// Source is one input table scheduled for cleaning.
type Source struct {
	ID    string `json:"id"`
	Group string `json:"group"`
	Page  int    `json:"page"`
	Path  string `json:"source"`
}

// Discover expands args into a sorted list of loadable files. An argument
// may be a directory (its supported files, not recursive), a glob or a
// literal path.
func Discover(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			entries, err := os.ReadDir(arg)
			if err != nil {
				return nil, fmt.Errorf("read dir: %w", err)
			}
			for _, e := range entries {
				if !e.IsDir() && reader.Supported(e.Name()) {
					add(filepath.Join(arg, e.Name()))
				}
			}
			continue
		}
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if reader.Supported(m) {
				add(m)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// ParseName splits a table file name into its identifier (the base name
// without extension), its group (the part before the first '_') and its
// page (the integer after the last '_', 0 when there is none).
func ParseName(path string) (id, group string, page int) {
	base := filepath.Base(path)
	id = strings.TrimSuffix(base, filepath.Ext(base))
	group = id
	if i := strings.IndexByte(id, '_'); i >= 0 {
		group = id[:i]
	}
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		if n, err := strconv.Atoi(id[i+1:]); err == nil && n >= 0 {
			page = n
		}
	}
	return id, group, page
}

// Plan orders files by group name, then page, then identifier. Identifiers
// that collide (same base name, different extension or directory) get
// ".1", ".2" suffixes.
func Plan(files []string) []Source {
	out := make([]Source, len(files))
	for i, f := range files {
		id, group, page := ParseName(f)
		out[i] = Source{ID: id, Group: group, Page: page, Path: f}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Path < out[j].Path
	})
	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	for i, id := range table.Dedupe(ids) {
		out[i].ID = id
	}
	return out
}
