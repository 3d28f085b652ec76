package sandbox

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Template is a canned game the sandbox hands out instead of generating one.
type Template struct {
	Name       string         `yaml:"name"`
	Categories []string       `yaml:"categories"`
	Background string         `yaml:"background"`
	Rules      *ruledoc.Node  `yaml:"rules"`
	Roles      []TemplateRole `yaml:"roles"`
	Choices    []string       `yaml:"choices"`
	Events     []Event        `yaml:"events"`
}

type TemplateRole struct {
	Name    string `yaml:"name"`
	Ability string `yaml:"ability"`
}

// Event is a scripted happening reported in round history.
type Event struct {
	Description string `yaml:"description"`
	Result      string `yaml:"result"`
}

type Catalog struct {
	Games []Template `yaml:"games"`
}

// LoadCatalog parses a catalog file. Every template must seat the largest
// table and offer at least one choice.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(c.Games) == 0 {
		return nil, errors.New("catalog has no games")
	}
	for i, g := range c.Games {
		if g.Name == "" {
			return nil, fmt.Errorf("catalog game %d has no name", i)
		}
		if len(g.Roles) < ruledoc.MaxPlayers {
			return nil, fmt.Errorf("catalog game %q needs %d roles, has %d", g.Name, ruledoc.MaxPlayers, len(g.Roles))
		}
		if len(g.Choices) == 0 {
			return nil, fmt.Errorf("catalog game %q has no choices", g.Name)
		}
		if g.Rules == nil {
			c.Games[i].Rules = ruledoc.Map()
		}
	}
	return &c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalog)
}

// Pick returns the first template listed under category, or the first
// template when none is.
func (c *Catalog) Pick(category string) Template {
	for _, g := range c.Games {
		if slices.Contains(g.Categories, category) {
			return g
		}
	}
	return c.Games[0]
}

// ByName finds the template a stored document was built from.
func (c *Catalog) ByName(name string) (Template, bool) {
	for _, g := range c.Games {
		if g.Name == name {
			return g, true
		}
	}
	return Template{}, false
}
