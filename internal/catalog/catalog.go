// internal/catalog/catalog.go
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

//go:embed nominations-2026.json
var rawNominations []byte

// Nominee is one entry in a category. Field sets vary by category kind
// (acting nominees carry "name"+"film", songs carry "song"+"film", most
// technical categories carry "film" plus a credit field), so nominees are
// kept as a loose string map the way the source dataset stores them.
type Nominee map[string]string

// Category is a named award with its fixed nominee slate.
type Category struct {
	Name     string    `json:"name"`
	Nominees []Nominee `json:"nominees"`
}

// Catalog is the fixed, read-only nominations list for one ceremony year.
type Catalog struct {
	Year         int        `json:"year"`
	Ceremony     string     `json:"ceremony"`
	CeremonyDate string     `json:"ceremonyDate"`
	Categories   []Category `json:"categories"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the compiled-in nominations catalog. It panics if the
// embedded dataset is malformed, which can only happen at build time.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(rawNominations)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded nominations data invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse decodes a nominations dataset.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal nominations: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("nominations data has no categories")
	}
	return &c, nil
}

// CategoryCount is the total number of categories; contest completion is
// measured against this, never against a client-observed winner count.
func (c *Catalog) CategoryCount() int {
	return len(c.Categories)
}

// Category looks up a category by name.
func (c *Catalog) Category(name string) (*Category, bool) {
	for i := range c.Categories {
		if c.Categories[i].Name == name {
			return &c.Categories[i], true
		}
	}
	return nil, false
}

// HasCategory reports whether name is a known category.
func (c *Catalog) HasCategory(name string) bool {
	_, ok := c.Category(name)
	return ok
}

// HasNominee reports whether nomineeID identifies a nominee of the named category.
func (c *Catalog) HasNominee(categoryName, nomineeID string) bool {
	cat, ok := c.Category(categoryName)
	if !ok {
		return false
	}
	for _, n := range cat.Nominees {
		if NomineeID(categoryName, n) == nomineeID {
			return true
		}
	}
	return false
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NomineeID derives the stable identifier for a nominee from the category
// name and the nominee's primary display field, lower-cased with whitespace
// collapsed to hyphens. The same nominee yields the same id on every client.
func NomineeID(categoryName string, n Nominee) string {
	id := strings.ToLower(categoryName + "::" + n.primary())
	return whitespaceRe.ReplaceAllString(id, "-")
}

func (n Nominee) primary() string {
	if v := n["name"]; v != "" {
		return v
	}
	if v := n["film"]; v != "" {
		return v
	}
	return n["song"]
}

// DisplayName is the nominee's primary display string: the person for
// acting categories, the film for most others, the song title for songs.
func (n Nominee) DisplayName() string {
	if v := n.primary(); v != "" {
		return v
	}
	return "Unknown"
}

// SecondaryInfo is the supporting line shown under the display name,
// or "" when the nominee has none.
func (n Nominee) SecondaryInfo() string {
	if n["name"] != "" && n["film"] != "" {
		return n["film"]
	}
	for _, key := range []string{"director", "cinematographer", "composer", "writers", "producers", "creators", "country", "credits"} {
		if v := n[key]; v != "" {
			return v
		}
	}
	return ""
}
