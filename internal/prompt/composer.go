// Package prompt builds the instruction sent with a guest's photo.
package prompt

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"era-photobooth/internal/apperr"
	"era-photobooth/internal/demographics"
	"era-photobooth/internal/theme"
)

const sharedInstructions = "A hyper-realistic, high-resolution portrait-oriented photo. " +
	"Each person's appearance must accurately match the source photo, fully preserving identity, natural skin tone, " +
	"ethnic features, gender, age, facial structure, and expression. " +
	"The final image should look like a modern professional photoshoot with an authentic historical theme. " +
	"Everything must appear natural, cohesive, and true to the original individuals. No cartoon style, no distortion."

var identityRequirements = []string{
	"KEEP the original faces and identity visible and recognizable. Do NOT alter facial features, skin tone or expression.",
	"Change ONLY clothing, hair, and accessories to be historically accurate.",
	"Photorealistic, high quality, 9:16 portrait.",
	"Lighting must be cinematic, volumetric, and natural, casting realistic shadows on the clothing layers.",
}

// Rand is the subset of *rand.Rand the composer needs.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

type Composer struct {
	rng Rand
}

// NewComposer uses the global source when rng is nil.
func NewComposer(rng Rand) *Composer {
	if rng == nil {
		rng = globalRand{}
	}
	return &Composer{rng: rng}
}

// Compose draws one clothing description per adult bucket present in d and
// renders the full instruction.
func (c *Composer) Compose(t theme.Theme, scene theme.SceneVariant, d demographics.Result) (string, error) {
	d = d.Normalize()

	var clauses []string
	if d.Male > 0 {
		outfit, err := c.draw(t, "male", scene.MaleClothing)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, fmt.Sprintf("the %s wearing %s", plural(d.Male, "man", "men"), outfit))
	}
	if d.Female > 0 {
		outfit, err := c.draw(t, "female", scene.FemaleClothing)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, fmt.Sprintf("the %s wearing %s", plural(d.Female, "woman", "women"), outfit))
	}
	if d.Child > 0 {
		clauses = append(clauses, fmt.Sprintf("the %s wearing historically accurate %s child attire",
			plural(d.Child, "child", "children"), t.Name))
	}

	var b strings.Builder
	b.Grow(2048)

	b.WriteString(sharedInstructions)
	b.WriteString("\n\n")
	b.WriteString("INPUT: A photo of " + SubjectPhrase(d) + ".\n")
	b.WriteString("TASK: Place them into " + sentence(scene.Description) + " during the " + t.Name + " era.\n")
	if len(clauses) > 0 {
		b.WriteString("CLOTHING: " + strings.Join(clauses, ", ") + ".\n")
	}
	b.WriteString("\nSTYLE: Professional cinematic photography, 9:16 portrait.\n\n")
	b.WriteString("REQUIREMENTS:\n")
	for _, line := range identityRequirements {
		b.WriteString("- " + line + "\n")
	}

	return strings.TrimSpace(b.String()), nil
}

func (c *Composer) draw(t theme.Theme, bucket string, pool []string) (string, error) {
	if len(pool) == 0 {
		return "", apperr.Configuration("prompt.Compose", "theme %q has no %s clothing", t.ID, bucket)
	}
	return sentence(pool[c.rng.IntN(len(pool))]), nil
}

// SubjectPhrase describes who is in the photo: "a man", "a young child",
// "a group of 2 men, 1 woman and 1 child".
func SubjectPhrase(d demographics.Result) string {
	if d.Total == 1 {
		switch {
		case d.Child > 0:
			return "a young child"
		case d.Male >= 1:
			return "a man"
		case d.Female > 0:
			return "a woman"
		default:
			return "a person"
		}
	}

	if counts := JoinCounts(d); counts != "" {
		return "a group of " + counts
	}
	return fmt.Sprintf("a group of %d people", d.Total)
}

// JoinCounts lists the non-zero buckets, e.g. "2 men, 1 woman and 1 child".
func JoinCounts(d demographics.Result) string {
	var parts []string
	if d.Male > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", d.Male, plural(d.Male, "man", "men")))
	}
	if d.Female > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", d.Female, plural(d.Female, "woman", "women")))
	}
	if d.Child > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", d.Child, plural(d.Child, "child", "children")))
	}

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// sentence trims whitespace and a trailing period so fragments can be
// embedded mid-sentence.
func sentence(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ".")
}
