package theme

import (
	"strings"

	"era-photobooth/internal/apperr"
)

// DefaultBackground is used for themes that do not list their own backgrounds.
const DefaultBackground = "Backgrounds/Generic-Background.jpg"

type SceneVariant struct {
	Description    string   `yaml:"description" json:"description"`
	MaleClothing   []string `yaml:"male_clothing" json:"male_clothing"`
	FemaleClothing []string `yaml:"female_clothing" json:"female_clothing"`
}

type Theme struct {
	ID           string         `yaml:"id" json:"id"`
	Name         string         `yaml:"name" json:"name"`
	Description  string         `yaml:"description" json:"description"`
	PreviewImage string         `yaml:"preview_image" json:"preview_image"`
	Passthrough  bool           `yaml:"passthrough" json:"passthrough"` // no generation, raw capture is composited
	Scenes       []SceneVariant `yaml:"scenes" json:"-"`
	Backgrounds  []string       `yaml:"backgrounds" json:"-"`
	Frames       []string       `yaml:"frames" json:"-"`
}

func (t Theme) Background() string {
	for _, bg := range t.Backgrounds {
		if bg = strings.TrimSpace(bg); bg != "" {
			return bg
		}
	}
	return DefaultBackground
}

func (t Theme) Frame() (string, bool) {
	for _, fr := range t.Frames {
		if fr = strings.TrimSpace(fr); fr != "" {
			return fr, true
		}
	}
	return "", false
}

type Catalog struct {
	order []string
	byID  map[string]Theme
}

// NewCatalog validates themes and keeps them in the given order. Any invalid
// theme fails the whole catalog with a configuration error.
func NewCatalog(themes []Theme) (*Catalog, error) {
	if len(themes) == 0 {
		return nil, apperr.Configuration("theme.NewCatalog", "catalog is empty")
	}

	c := &Catalog{
		order: make([]string, 0, len(themes)),
		byID:  make(map[string]Theme, len(themes)),
	}
	for _, t := range themes {
		t.ID = strings.TrimSpace(t.ID)
		if err := Validate(t); err != nil {
			return nil, err
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, apperr.Configuration("theme.NewCatalog", "duplicate theme id %q", t.ID)
		}
		c.order = append(c.order, t.ID)
		c.byID[t.ID] = cloneTheme(t)
	}
	return c, nil
}

// Validate checks that every demographic bucket an AI theme can produce has
// clothing to draw from.
func Validate(t Theme) error {
	const op = "theme.Validate"

	if strings.TrimSpace(t.ID) == "" {
		return apperr.Configuration(op, "theme id is empty")
	}
	if strings.TrimSpace(t.Name) == "" {
		return apperr.Configuration(op, "theme %q: name is empty", t.ID)
	}
	if t.Passthrough {
		return nil
	}
	if len(t.Scenes) == 0 {
		return apperr.Configuration(op, "theme %q: no scene variants", t.ID)
	}
	for i, s := range t.Scenes {
		if strings.TrimSpace(s.Description) == "" {
			return apperr.Configuration(op, "theme %q scene %d: description is empty", t.ID, i)
		}
		if len(nonEmpty(s.MaleClothing)) == 0 {
			return apperr.Configuration(op, "theme %q scene %d: male clothing pool is empty", t.ID, i)
		}
		if len(nonEmpty(s.FemaleClothing)) == 0 {
			return apperr.Configuration(op, "theme %q scene %d: female clothing pool is empty", t.ID, i)
		}
	}
	return nil
}

func (c *Catalog) Get(id string) (Theme, bool) {
	t, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Theme{}, false
	}
	return cloneTheme(t), true
}

func (c *Catalog) List() []Theme {
	out := make([]Theme, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, cloneTheme(c.byID[id]))
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.order)
}

func cloneTheme(t Theme) Theme {
	scenes := make([]SceneVariant, len(t.Scenes))
	for i, s := range t.Scenes {
		scenes[i] = SceneVariant{
			Description:    s.Description,
			MaleClothing:   nonEmpty(s.MaleClothing),
			FemaleClothing: nonEmpty(s.FemaleClothing),
		}
	}
	t.Scenes = scenes
	t.Backgrounds = append([]string(nil), t.Backgrounds...)
	t.Frames = append([]string(nil), t.Frames...)
	return t
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
