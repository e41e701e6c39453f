// Package exemption loads the list of users excused from activity
// requirements.
//
// The file is a YAML mapping of category to usernames:
//
//	retired:
//	  - Carol
//	leave:
//	  - Dave
//
// When a user is listed under several categories the category declared last
// in the file wins.
package exemption

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
)

// DefaultPath is read when no path is configured.
const DefaultPath = "excuses.yaml"

// Registry maps users to their exemption category. It is read-only once
// loaded.
type Registry struct {
	byUser     map[string]string
	categories []string
}

// Load reads and parses the exemption file at path.
func Load(path string, logger zerolog.Logger) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading exemptions: %w", perrors.ErrConfiguration, err)
	}
	reg, err := Parse(data, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Parse builds a registry from YAML. The document is walked node by node so
// categories are applied in file order regardless of map iteration.
func Parse(data []byte, logger zerolog.Logger) (*Registry, error) {
	logger = logger.With().Str("component", "exemption").Logger()
	reg := &Registry{byUser: make(map[string]string)}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing exemptions: %w", perrors.ErrConfiguration, err)
	}
	if len(doc.Content) == 0 {
		return reg, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, perrors.Configuration("exemptions must be a mapping of category to users (line %d)", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		category := strings.TrimSpace(keyNode.Value)
		if category == "" {
			return nil, perrors.Configuration("empty exemption category (line %d)", keyNode.Line)
		}

		var users []string
		if valNode.Tag != "!!null" {
			if valNode.Kind != yaml.SequenceNode {
				return nil, perrors.Configuration("category %q must list users (line %d)", category, valNode.Line)
			}
			if err := valNode.Decode(&users); err != nil {
				return nil, fmt.Errorf("%w: category %q: %w", perrors.ErrConfiguration, category, err)
			}
		}

		reg.categories = append(reg.categories, category)
		for _, u := range users {
			name := NormalizeUser(u)
			if name == "" {
				continue
			}
			if prev, ok := reg.byUser[name]; ok && prev != category {
				logger.Warn().
					Str("user", name).
					Str("previous", prev).
					Str("category", category).
					Msg("user listed under several exemption categories; later category wins")
			}
			reg.byUser[name] = category
		}
	}

	logger.Debug().Int("users", len(reg.byUser)).Strs("categories", reg.categories).Msg("loaded exemptions")
	return reg, nil
}

// Lookup returns the user's exemption category, or "" if they have none.
func (r *Registry) Lookup(user string) string {
	if r == nil {
		return ""
	}
	return r.byUser[NormalizeUser(user)]
}

// Categories returns the categories in file order.
func (r *Registry) Categories() []string {
	return append([]string(nil), r.categories...)
}

// Len returns the number of exempt users.
func (r *Registry) Len() int {
	return len(r.byUser)
}

// NormalizeUser canonicalizes a username the way the wiki does: underscores
// become spaces and the first letter is upper-cased.
func NormalizeUser(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}
