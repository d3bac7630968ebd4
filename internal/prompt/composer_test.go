package prompt

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"era-photobooth/internal/apperr"
	"era-photobooth/internal/demographics"
	"era-photobooth/internal/theme"
)

func kunafa(t *testing.T) theme.Theme {
	t.Helper()
	c, err := theme.DefaultCatalog()
	require.NoError(t, err)
	th, ok := c.Get("kunafa_maker")
	require.True(t, ok)
	return th
}

func TestSubjectPhrase(t *testing.T) {
	tests := []struct {
		name string
		in   demographics.Result
		want string
	}{
		{"one man", demographics.Result{Male: 1, Total: 1}, "a man"},
		{"one woman", demographics.Result{Female: 1, Total: 1}, "a woman"},
		{"one child", demographics.Result{Child: 1, Total: 1}, "a young child"},
		{"one unknown", demographics.Result{Total: 1}, "a person"},
		{"family", demographics.Result{Male: 2, Female: 1, Child: 1, Total: 4}, "a group of 2 men, 1 woman and 1 child"},
		{"two women", demographics.Result{Female: 2, Total: 2}, "a group of 2 women"},
		{"man and children", demographics.Result{Male: 1, Child: 3, Total: 4}, "a group of 1 man and 3 children"},
		{"unbucketed group", demographics.Result{Total: 3}, "a group of 3 people"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubjectPhrase(tt.in))
		})
	}
}

func TestJoinCounts(t *testing.T) {
	assert.Equal(t, "2 men, 1 woman and 1 child", JoinCounts(demographics.Result{Male: 2, Female: 1, Child: 1, Total: 4}))
	assert.Equal(t, "", JoinCounts(demographics.Result{Total: 2}))
}

func TestComposeSingleMan(t *testing.T) {
	th := kunafa(t)
	scene := th.Scenes[0]

	text, err := NewComposer(rand.New(rand.NewPCG(1, 2))).Compose(th, scene, demographics.Result{Male: 1, Total: 1})
	require.NoError(t, err)

	assert.Contains(t, text, "A photo of a man.")
	assert.Contains(t, text, "during the Kunafa Dessert Maker era")
	assert.Equal(t, 1, strings.Count(text, " wearing "))
	assert.NotContains(t, text, "the woman wearing")

	matched := 0
	for _, outfit := range scene.MaleClothing {
		if strings.Contains(text, "the man wearing "+strings.TrimSuffix(outfit, ".")) {
			matched++
		}
	}
	assert.Equal(t, 1, matched)
	assert.Contains(t, text, "KEEP the original faces and identity")
	assert.Contains(t, text, "Change ONLY clothing")
}

func TestComposeGroup(t *testing.T) {
	th := kunafa(t)

	text, err := NewComposer(rand.New(rand.NewPCG(3, 4))).Compose(th, th.Scenes[0], demographics.Result{Male: 2, Female: 1, Child: 1, Total: 4})
	require.NoError(t, err)

	assert.Contains(t, text, "A photo of a group of 2 men, 1 woman and 1 child.")
	assert.Contains(t, text, "the men wearing ")
	assert.Contains(t, text, "the woman wearing ")
	assert.Contains(t, text, "the child wearing historically accurate Kunafa Dessert Maker child attire")
}

func TestComposeIsDeterministicForSeed(t *testing.T) {
	th := kunafa(t)
	d := demographics.Result{Male: 1, Female: 2, Total: 3}

	a, err := NewComposer(rand.New(rand.NewPCG(42, 42))).Compose(th, th.Scenes[0], d)
	require.NoError(t, err)
	b, err := NewComposer(rand.New(rand.NewPCG(42, 42))).Compose(th, th.Scenes[0], d)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestComposeEmptyResultUsesDefault(t *testing.T) {
	th := kunafa(t)
	text, err := NewComposer(nil).Compose(th, th.Scenes[0], demographics.Result{})
	require.NoError(t, err)
	assert.Contains(t, text, "A photo of a woman.")
}

func TestComposeEmptyPoolIsConfigurationError(t *testing.T) {
	th := kunafa(t)
	scene := th.Scenes[0]
	scene.MaleClothing = nil

	_, err := NewComposer(nil).Compose(th, scene, demographics.Result{Male: 1, Total: 1})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))

	_, err = NewComposer(nil).Compose(th, scene, demographics.Result{Female: 1, Total: 1})
	assert.NoError(t, err)
}
