package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nations.ai/internal/protocol"
)

// Catalog is the ordered set of transform templates available to the
// planner. Templates keeps first-seen order; a later template with the same
// display name replaces the earlier one in place.
type Catalog struct {
	Templates []*Template
	ByName    map[string]*Template
	Digest    string
	Source    string
}

// RecipeDef is the JSON recipe form of a template.
type RecipeDef struct {
	RecipeID string      `json:"recipe_id"`
	Inputs   []ItemCount `json:"inputs"`
	Outputs  []ItemCount `json:"outputs"`
}

func NewCatalog(tpls []*Template) *Catalog {
	c := &Catalog{ByName: map[string]*Template{}}
	for _, t := range tpls {
		c.add(t)
	}
	return c
}

func (c *Catalog) add(t *Template) {
	if _, ok := c.ByName[t.Name]; ok {
		for i, old := range c.Templates {
			if old.Name == t.Name {
				c.Templates[i] = t
				break
			}
		}
	} else {
		c.Templates = append(c.Templates, t)
	}
	c.ByName[t.Name] = t
}

func (c *Catalog) Lookup(name string) (*Template, bool) {
	t, ok := c.ByName[name]
	return t, ok
}

func (c *Catalog) Len() int { return len(c.Templates) }

// Load reads a template file (.tpl, or .json recipes) or every such file in
// a directory, in name order.
func Load(path string) (*Catalog, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var files []string
	if st.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".tpl", ".json":
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	var all []*Template
	var concat bytes.Buffer
	for _, p := range files {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		concat.Write(raw)
		concat.WriteByte('\n')

		var tpls []*Template
		if strings.EqualFold(filepath.Ext(p), ".json") {
			tpls, err = ParseRecipesJSON(raw)
		} else {
			tpls, err = ParseTemplates(string(raw))
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		all = append(all, tpls...)
	}

	c := NewCatalog(all)
	c.Digest = sha256Hex(concat.Bytes())
	c.Source = path
	return c, nil
}

// ParseRecipesJSON decodes a JSON array of recipes. recipe_id is the
// fallback display name.
func ParseRecipesJSON(raw []byte) ([]*Template, error) {
	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("%w: recipes: %v", protocol.ErrMalformedTemplate, err)
	}
	out := make([]*Template, 0, len(defs))
	for _, d := range defs {
		t, err := NewTemplate(d.RecipeID, d.Inputs, d.Outputs)
		if err != nil {
			return nil, fmt.Errorf("recipe %q: %w", d.RecipeID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
