package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultCatalogue []byte

// Catalogue holds every natural-language text sent to the model or shown
// to the user. Texts may contain a {name} placeholder.
type Catalogue struct {
	CoinList  string `yaml:"coin_list"`
	History   string `yaml:"history"`
	Sentiment string `yaml:"sentiment"`
	Forecast  string `yaml:"forecast"`

	ChatSystem         string `yaml:"chat_system"`
	ChatDefaultSubject string `yaml:"chat_default_subject"`
	GreetingAsset      string `yaml:"greeting_asset"`
	GreetingDefault    string `yaml:"greeting_default"`
	ChatError          string `yaml:"chat_error"`
}

// Default returns the embedded catalogue.
func Default() *Catalogue {
	var c Catalogue
	if err := yaml.Unmarshal(defaultCatalogue, &c); err != nil {
		panic(fmt.Sprintf("embedded prompt catalogue is invalid: %v", err))
	}
	return &c
}

// Load returns the embedded catalogue with keys from the YAML file at path
// layered on top. An empty path returns the defaults.
func Load(path string) (*Catalogue, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	// Unmarshal into the populated struct so absent keys keep their defaults.
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks that no text is blank.
func (c *Catalogue) Validate() error {
	fields := map[string]string{
		"coin_list":        c.CoinList,
		"history":          c.History,
		"sentiment":        c.Sentiment,
		"forecast":         c.Forecast,
		"chat_system":      c.ChatSystem,
		"greeting_asset":   c.GreetingAsset,
		"greeting_default": c.GreetingDefault,
		"chat_error":       c.ChatError,
	}
	for key, value := range fields {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("prompt %q must not be empty", key)
		}
	}
	return nil
}

// Render substitutes name into the {name} placeholder.
func Render(text, name string) string {
	return strings.ReplaceAll(text, "{name}", name)
}

// ChatSystemFor returns the chat system preamble for the given subject.
// An empty name falls back to the default subject.
func (c *Catalogue) ChatSystemFor(name string) string {
	if name == "" {
		name = c.ChatDefaultSubject
	}
	return Render(c.ChatSystem, name)
}

// GreetingFor returns the opening assistant message.
func (c *Catalogue) GreetingFor(name string) string {
	if name == "" {
		return c.GreetingDefault
	}
	return Render(c.GreetingAsset, name)
}
