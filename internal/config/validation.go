package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ValidateHTTPURL checks that raw is an absolute http or https URL.
func ValidateHTTPURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

// CheckDirectoryWritable creates dirPath if needed and checks that files can be created in it.
func CheckDirectoryWritable(dirPath string) error {
	if strings.TrimSpace(dirPath) == "" {
		return fmt.Errorf("directory path cannot be empty")
	}
	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dirPath, err)
	}

	testFile := filepath.Join(dirPath, ".medlock_write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("directory '%s' is not writable: %w", dirPath, err)
	}
	file.Close()
	os.Remove(testFile)
	return nil
}
