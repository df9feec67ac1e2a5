package catalog

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// openRangeSpan is the width assumed for experience given as a single value, such as "5+ yrs".
const openRangeSpan = 3

var (
	rangePattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:-|to|–)\s*(\d+(?:\.\d+)?)`)
	singlePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
)

// ParseExperience parses strings such as "2 - 5 yrs", "12 to 17 Years" or "5+ years".
// A single value v yields the range [v, v+3]. Text without numbers yields [0, 5].
func ParseExperience(s string) (float64, float64) {
	s = strings.ToLower(s)
	if m := rangePattern.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		if hi < lo {
			lo, hi = hi, lo
		}
		return lo, hi
	}
	if m := singlePattern.FindStringSubmatch(s); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v, v + openRangeSpan
	}
	return 0, 5
}

func experienceValue(value any) (float64, float64, error) {
	switch v := value.(type) {
	case string:
		lo, hi := ParseExperience(v)
		return lo, hi, nil
	case float64:
		return v, v + openRangeSpan, nil
	case nil:
		return 0, 0, nil
	default:
		return 0, 0, fmt.Errorf("unsupported experience value of type %T", value)
	}
}

// splitSkillsHook decodes "Python | SQL" and "python, sql" into skill slices.
func splitSkillsHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string(nil)) {
		return data, nil
	}
	return SplitSkills(data.(string)), nil
}

// SplitSkills splits a pipe or comma separated skill list.
func SplitSkills(s string) []string {
	sep := ","
	if strings.Contains(s, "|") {
		sep = "|"
	}
	parts := strings.Split(s, sep)
	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			skills = append(skills, p)
		}
	}
	return skills
}
