// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks dextrust's message catalogs. It scans the Go sources
// for i18n.T() calls and compares them against the YAML locale files:
// keys missing from a secondary locale fail the run, orphaned keys and
// hard-coded user-facing strings are reported as warnings.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Location stores the file and line number of a found string.
type Location struct {
	Filepath string
	Line     int
}

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

// skipDirs are never scanned for Go sources.
var skipDirs = map[string]struct{}{"tools": {}, "_examples": {}, ".git": {}, "vendor": {}}

// report is the outcome of one lint run.
type report struct {
	Used         map[string]struct{}
	Orphaned     []string
	Missing      map[string][]string // locale file -> keys
	Untranslated map[string][]Location
}

func (r report) failed() bool {
	for _, keys := range r.Missing {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}

func main() {
	if !run(os.Stdout, projectRoot, localesDir, primaryLocale) {
		os.Exit(1)
	}
}

// run lints root against the catalogs in locales and prints the report to
// w. It returns false when the catalogs need fixing.
func run(w io.Writer, root, locales, primary string) bool {
	fmt.Fprintln(w, "🔍 Running i18n linter...")
	r, err := lint(root, locales, primary)
	if err != nil {
		fmt.Fprintf(w, "❌ %v\n", err)
		return false
	}
	fmt.Fprintf(w, "✅ Found %d unique translation keys used in source code.\n\n", len(r.Used))

	fmt.Fprintln(w, "--- Checking for Orphaned Keys (in primary locale but not used in code) ---")
	for _, key := range r.Orphaned {
		fmt.Fprintf(w, "  - Orphaned: %s\n", key)
	}
	if len(r.Orphaned) == 0 {
		fmt.Fprintln(w, "  ✨ None found.")
	}

	fmt.Fprintln(w, "\n--- Checking for Missing Keys (in primary locale but not in others) ---")
	files := make([]string, 0, len(r.Missing))
	for f := range r.Missing {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		fmt.Fprintf(w, "Checking %s:\n", f)
		if len(r.Missing[f]) == 0 {
			fmt.Fprintln(w, "  ✨ All keys present.")
			continue
		}
		for _, key := range r.Missing[f] {
			fmt.Fprintf(w, "  - Missing: %s\n", key)
		}
	}

	fmt.Fprintln(w, "\n--- Checking for Potentially Untranslated Strings ---")
	if len(r.Untranslated) == 0 {
		fmt.Fprintln(w, "  ✨ None found.")
	} else {
		literals := make([]string, 0, len(r.Untranslated))
		for literal := range r.Untranslated {
			literals = append(literals, literal)
		}
		sort.Strings(literals)
		for _, literal := range literals {
			loc := r.Untranslated[literal][0]
			fmt.Fprintf(w, "  - Potential: %q (found in %s:%d)\n", literal, loc.Filepath, loc.Line)
		}
	}

	fmt.Fprintln(w, "\n--- Linter Finished ---")
	switch {
	case r.failed():
		fmt.Fprintln(w, "❌ Found issues that need to be addressed.")
		return false
	case len(r.Orphaned) > 0:
		fmt.Fprintln(w, "⚠️  Found orphaned keys. Please consider removing them.")
	default:
		fmt.Fprintln(w, "✅ All translation files are consistent!")
	}
	return true
}

// lint collects used keys under root and checks every *.yaml catalog in
// locales against the primary one.
func lint(root, locales, primary string) (report, error) {
	r := report{Missing: make(map[string][]string)}

	used, err := findUsedKeys(root)
	if err != nil {
		return r, fmt.Errorf("finding used keys: %w", err)
	}
	r.Used = used

	primaryKeys, err := loadKeysFromLocale(filepath.Join(locales, primary))
	if err != nil {
		return r, fmt.Errorf("loading primary locale '%s': %w", primary, err)
	}
	for key := range primaryKeys {
		if _, ok := used[key]; !ok {
			r.Orphaned = append(r.Orphaned, key)
		}
	}
	sort.Strings(r.Orphaned)

	localeFiles, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		return r, fmt.Errorf("finding locale files: %w", err)
	}
	for _, file := range localeFiles {
		if filepath.Base(file) == primary {
			continue
		}
		secondary, err := loadKeysFromLocale(file)
		if err != nil {
			return r, fmt.Errorf("loading %s: %w", file, err)
		}
		missing := []string{}
		for key := range primaryKeys {
			if _, ok := secondary[key]; !ok {
				missing = append(missing, key)
			}
		}
		sort.Strings(missing)
		r.Missing[filepath.Base(file)] = missing
	}

	r.Untranslated, err = findUntranslatedStrings(root, used, primaryKeys)
	if err != nil {
		return r, fmt.Errorf("finding untranslated strings: %w", err)
	}
	return r, nil
}

// findUsedKeys scans all .go files for i18n.T("key") calls.
func findUsedKeys(root string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	// Matches i18n.T("some.key") and bare literals shaped like a dotted key.
	re := regexp.MustCompile(`i18n\.T\("([^"]+)"|\"([a-z]+\.[a-z\._]+)\"`)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != root {
			if _, skip := skipDirs[info.Name()]; skip {
				return filepath.SkipDir
			}
		}
		if !info.IsDir() && strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			matches := re.FindAllStringSubmatch(string(content), -1)
			for _, match := range matches {
				// match[1] is from i18n.T(), match[2] is from the general string literal
				if len(match) > 1 && match[1] != "" {
					keys[match[1]] = struct{}{}
				} else if len(match) > 2 && match[2] != "" {
					keys[match[2]] = struct{}{}
				}
			}
		}
		return nil
	})

	return keys, err
}

// findUntranslatedStrings scans for hardcoded strings that might need translation.
func findUntranslatedStrings(root string, usedKeys, allKeys map[string]struct{}) (map[string][]Location, error) {
	untranslated := make(map[string][]Location)
	// Regex to find string literals inside functions that are likely to produce user-facing output.
	re := regexp.MustCompile(`([a-zA-Z0-9_]+\.)?([a-zA-Z0-9_]+)\("([^"]+)"`)
	// Blacklist of function names to ignore.
	blacklist := map[string]struct{}{"Print": {}, "Println": {}, "Printf": {}, "Fatal": {}, "Fatalf": {}, "WriteString": {},
		"Debugf": {}, "Infof": {}, "Warnf": {}, "Errorf": {}, "Wrap": {}, "E": {}, "Other": {}, "String": {}, "Bool": {}, "Int": {}, "Duration": {}}
	keyRe := regexp.MustCompile(`^[a-z_]+\.[a-z\._]+$`)

	// Precompile regexes used in the loop to avoid repeated compilation.
	reAllCaps := regexp.MustCompile(`^[A-Z_]+$`)
	reFormatString := regexp.MustCompile(`^[\s%.,:;()#\d\w-]*%[\s\w-]*$`)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() && path != root {
			if _, skip := skipDirs[info.Name()]; skip {
				return filepath.SkipDir
			}
		}
		if !info.IsDir() && strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			// Split content into lines to check for log calls
			lines := strings.Split(string(content), "\n")
			for i, line := range lines {
				matches := re.FindAllStringSubmatch(line, -1)
				for _, match := range matches {
					if len(match) < 4 {
						continue
					}
					funcName := match[2]
					literal := match[3]

					if _, isBlacklisted := blacklist[funcName]; isBlacklisted {
						continue
					}

					// Heuristics to filter out false positives:
					// 1. Ignore if it's a known translation key.
					if _, exists := allKeys[literal]; exists {
						continue
					}
					// 2. Ignore if it looks like a translation key.
					if keyRe.MatchString(literal) {
						continue
					}
					// 3. Ignore short or non-text-like strings.
					if len(literal) < 4 {
						continue
					}
					// 4. Ignore if it's just a format specifier or other code artifact.
					if strings.HasPrefix(literal, "file:") || strings.HasPrefix(literal, "http") {
						continue
					}

					// 5. Ignore if it looks like an SQL query.
					upperLiteral := strings.ToUpper(literal)
					sqlKeywords := []string{"SELECT ", "INSERT ", "UPDATE ", "DELETE ", "TRUNCATE ", "PRAGMA ", "CREATE ", "ALTER ", "DROP "}
					isSQL := false
					for _, keyword := range sqlKeywords {
						if strings.HasPrefix(upperLiteral, keyword) {
							isSQL = true
							break
						}
					}
					if isSQL {
						continue
					}

					// 6. Ignore if it's a Go time layout string.
					if strings.HasPrefix(literal, "2006-") {
						continue
					}

					// 7. Ignore all-caps constants (e.g. DEXTRUST).
					if reAllCaps.MatchString(literal) {
						continue
					}

					// 8. Ignore if it's likely just a format string with no real text.
					if reFormatString.MatchString(literal) && !strings.Contains(literal, " ") {
						continue
					}

					untranslated[literal] = append(untranslated[literal], Location{Filepath: path, Line: i + 1})
				}
			}
		}
		return nil
	})

	return untranslated, err
}

// loadKeysFromLocale reads a YAML file and returns a flat map of its keys.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}

	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

// flattenYAML is a recursive function to convert a nested map into a flat
// map with dot-separated keys.
func flattenYAML(prefix string, node interface{}, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, val := range v {
			newPrefix := k
			if prefix != "" {
				newPrefix = prefix + "." + k
			}
			flattenYAML(newPrefix, val, keys)
		}
	case []interface{}:
		// We don't expect arrays of keys in our structure, but handle it just in case.
		for i, val := range v {
			newPrefix := fmt.Sprintf("%s[%d]", prefix, i)
			flattenYAML(newPrefix, val, keys)
		}
	default:
		// This is a leaf node, add the key.
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
