package profile

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EducationLevel is an ordered education category. Higher values mean a higher degree.
type EducationLevel int

const (
	EducationNone EducationLevel = iota
	EducationHighSchool
	EducationBachelor
	EducationMaster
	EducationDoctorate
)

// MaxEducationLevel is the highest level on the ordinal scale.
const MaxEducationLevel = EducationDoctorate

var educationNames = map[EducationLevel]string{
	EducationNone:       "none",
	EducationHighSchool: "high-school",
	EducationBachelor:   "bachelor",
	EducationMaster:     "master",
	EducationDoctorate:  "doctorate",
}

// educationAliases maps the spellings found in resumes and job catalogs to a level.
var educationAliases = map[string]EducationLevel{
	"":                  EducationNone,
	"none":              EducationNone,
	"no degree":         EducationNone,
	"any":               EducationNone,
	"high-school":       EducationHighSchool,
	"high school":       EducationHighSchool,
	"highschool":        EducationHighSchool,
	"secondary":         EducationHighSchool,
	"diploma":           EducationHighSchool,
	"bachelor":          EducationBachelor,
	"bachelors":         EducationBachelor,
	"bachelor's":        EducationBachelor,
	"bachelor's degree": EducationBachelor,
	"bachelor degree":   EducationBachelor,
	"undergraduate":     EducationBachelor,
	"bsc":               EducationBachelor,
	"bs":                EducationBachelor,
	"ba":                EducationBachelor,
	"be":                EducationBachelor,
	"btech":             EducationBachelor,
	"b.tech":            EducationBachelor,
	"master":            EducationMaster,
	"masters":           EducationMaster,
	"master's":          EducationMaster,
	"master's degree":   EducationMaster,
	"master degree":     EducationMaster,
	"postgraduate":      EducationMaster,
	"msc":               EducationMaster,
	"ms":                EducationMaster,
	"ma":                EducationMaster,
	"mba":               EducationMaster,
	"mtech":             EducationMaster,
	"m.tech":            EducationMaster,
	"doctorate":         EducationDoctorate,
	"doctoral":          EducationDoctorate,
	"phd":               EducationDoctorate,
	"ph.d":              EducationDoctorate,
	"ph.d.":             EducationDoctorate,
}

// ParseEducationLevel converts a free-form education label into a level.
func ParseEducationLevel(s string) (EducationLevel, error) {
	key := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if level, ok := educationAliases[key]; ok {
		return level, nil
	}
	return EducationNone, fmt.Errorf("unknown education level %q", s)
}

func (e EducationLevel) String() string {
	if name, ok := educationNames[e]; ok {
		return name
	}
	return fmt.Sprintf("education(%d)", int(e))
}

// Valid reports whether the level is on the ordinal scale.
func (e EducationLevel) Valid() bool {
	return e >= EducationNone && e <= MaxEducationLevel
}

func (e EducationLevel) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid education level %d", int(e))
	}
	return []byte(e.String()), nil
}

func (e *EducationLevel) UnmarshalText(text []byte) error {
	level, err := ParseEducationLevel(string(text))
	if err != nil {
		return err
	}
	*e = level
	return nil
}

// UnmarshalJSON accepts either a label or the ordinal number.
func (e *EducationLevel) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		level := EducationLevel(n)
		if !level.Valid() {
			return fmt.Errorf("invalid education level %d", n)
		}
		*e = level
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("education level must be a string or a number: %w", err)
	}
	return e.UnmarshalText([]byte(s))
}
