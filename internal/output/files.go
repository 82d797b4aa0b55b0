package output

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileName picks a destination name for a download: the server-suggested
// name when there is one, else the last segment of the URL path, else
// "download".
func FileName(rawURL, suggested string) string {
	if suggested != "" {
		if base := filepath.Base(suggested); usableName(base) {
			return base
		}
	}
	parsed, err := url.Parse(rawURL)
	if err == nil {
		if base := path.Base(parsed.Path); usableName(base) {
			return base
		}
	}
	return "download"
}

func usableName(base string) bool {
	return base != "/" && base != "." && base != ".." && !strings.ContainsAny(base, `/\`)
}

// Unique returns outputPath, or the first "name-(n).ext" variant that does
// not exist yet.
func Unique(outputPath string) string {
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		return outputPath
	}
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	for index := 1; ; index++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// Save writes data to outputPath through a temporary file in the same
// directory, so the destination either holds the complete content or does
// not exist.
func Save(outputPath string, data []byte) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".*.part")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("error writing output: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("error syncing output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("error closing output: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("error setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("error renaming (finalizing) output file: %w", err)
	}
	return nil
}
