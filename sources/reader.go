// Package sources loads the list of listing pages to process.
package sources

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"justdial-scraper/models"
	"justdial-scraper/utils"
)

// ErrTemplateCreated is returned when the input file was missing and a
// template was written in its place.
var ErrTemplateCreated = errors.New("input file missing, template created")

const (
	commentMarker  = "#"
	allowedHost    = "justdial.com"
	templateHeader = "# Put one Justdial search URL per line e.g.\n"
	templateSample = "# https://www.justdial.com/Thane/Supermarkets-in-Shanti-Nagar-Mira-Road-East/nct-10463784\n"
)

// ReadLocations reads one page URL per line from path. Blank lines and
// comments are skipped, invalid URLs are logged and skipped. When the file
// does not exist a template is written and ErrTemplateCreated returned.
func ReadLocations(path string, logger *utils.Logger) ([]models.PageLocation, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Error("[source] Input file not found: %s", path)
		if werr := WriteTemplate(path); werr != nil {
			return nil, fmt.Errorf("source: create template: %w", werr)
		}
		logger.Info("[source] Sample file created at %s. Please add URLs and run again.", path)
		return nil, ErrTemplateCreated
	}
	if err != nil {
		return nil, fmt.Errorf("source: open %q: %w", path, err)
	}
	defer f.Close()

	var locations []models.PageLocation
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, commentMarker) {
			continue
		}
		loc, ok := ValidateLocation(line)
		if !ok {
			logger.Warn("[source] Skipping invalid URL on line %d: %s", lineNo, line)
			continue
		}
		locations = append(locations, loc)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("source: read %q: %w", path, err)
	}
	return locations, nil
}

// ValidateLocation accepts absolute http(s) URLs on a justdial.com host.
func ValidateLocation(raw string) (models.PageLocation, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != allowedHost && !strings.HasSuffix(host, "."+allowedHost) {
		return "", false
	}
	return models.PageLocation(u.String()), true
}

// WriteTemplate creates path with a single commented example line. An
// existing file is left untouched.
func WriteTemplate(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(templateHeader + templateSample); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
