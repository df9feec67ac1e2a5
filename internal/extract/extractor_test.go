package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/cv-matcher/internal/profile"
)

const resume = `Jane Doe
Senior backend engineer with 7+ years of experience building services in Golang and Python.
Worked with PostgreSQL, Docker and K8s on AWS. Familiar with C++ and CI/CD pipelines.
Education: Master's degree in Computer Science.`

func TestExtract(t *testing.T) {
	t.Parallel()

	e := New(Options{})
	got, err := e.Extract(context.Background(), resume)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", got.Name)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, 7.0, got.ExperienceYears)
	assert.Equal(t, profile.EducationMaster, got.Education)
	for _, skill := range []string{"go", "python", "postgresql", "docker", "kubernetes", "aws", "c++", "ci/cd"} {
		assert.Contains(t, got.Skills, skill)
	}
	assert.NotContains(t, got.Skills, "golang")
	assert.NotContains(t, got.Skills, "k8s")
	assert.False(t, strings.Contains(got.Summary, "\n"))
}

func TestExtractRejectsShortText(t *testing.T) {
	t.Parallel()

	e := New(Options{})

	_, err := e.Extract(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = e.Extract(context.Background(), "Go developer, 3 years")
	assert.ErrorIs(t, err, ErrTextTooShort)

	custom := New(Options{MinLength: 10})
	_, err = custom.Extract(context.Background(), "Go developer, 3 years")
	assert.NoError(t, err)
}

func TestExtractExtraSkills(t *testing.T) {
	t.Parallel()

	e := New(Options{ExtraSkills: []string{"Temporal"}, Synonyms: map[string]string{"temporal": "temporal.io"}})
	got, err := e.Extract(context.Background(), "Platform engineer running Temporal workflows in production for a long time.")
	require.NoError(t, err)
	assert.Contains(t, got.Skills, "temporal.io")
	assert.Equal(t, "", got.Name)
}

func TestFindYears(t *testing.T) {
	t.Parallel()

	cases := map[string]float64{
		"5 years of experience in sales":   5,
		"experience: 3 yrs":                3,
		"2.5 years exp":                    2.5,
		"worked there for 4 years":         4,
		"no numbers here":                  0,
		"10+ yrs of experience with linux": 10,
	}
	for text, want := range cases {
		assert.Equal(t, want, findYears(text), text)
	}
}

func TestFindEducation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, profile.EducationDoctorate, findEducation("phd in physics, master's in math"))
	assert.Equal(t, profile.EducationBachelor, findEducation("b.tech from iit"))
	assert.Equal(t, profile.EducationNone, findEducation("certified scrum master"))
	assert.Equal(t, profile.EducationHighSchool, findEducation("high school diploma"))
}

func TestContainsTerm(t *testing.T) {
	t.Parallel()

	assert.True(t, containsTerm("c++ and c#", "c++"))
	assert.True(t, containsTerm("c++ and c#", "c#"))
	assert.True(t, containsTerm("go.", "go"))
	assert.False(t, containsTerm("google cloud", "go"))
	assert.False(t, containsTerm("django", "go"))
	assert.True(t, containsTerm("used django and go", "go"))
}
