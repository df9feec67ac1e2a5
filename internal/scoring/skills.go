package scoring

import (
	"sort"
	"strings"
)

// defaultSynonyms folds common abbreviations onto one canonical skill name.
var defaultSynonyms = map[string]string{
	"js":                    "javascript",
	"ecmascript":            "javascript",
	"ts":                    "typescript",
	"k8s":                   "kubernetes",
	"golang":                "go",
	"postgres":              "postgresql",
	"psql":                  "postgresql",
	"mongo":                 "mongodb",
	"node":                  "node.js",
	"nodejs":                "node.js",
	"reactjs":               "react",
	"react.js":              "react",
	"vuejs":                 "vue",
	"vue.js":                "vue",
	"ml":                    "machine learning",
	"dl":                    "deep learning",
	"ai":                    "artificial intelligence",
	"nlp":                   "natural language processing",
	"cv":                    "computer vision",
	"amazon web services":   "aws",
	"google cloud":          "gcp",
	"google cloud platform": "gcp",
	"sklearn":               "scikit-learn",
	"tf":                    "tensorflow",
	"ci cd":                 "ci/cd",
	"cicd":                  "ci/cd",
	"c sharp":               "c#",
	"cpp":                   "c++",
}

// Normalizer canonicalizes skill names so that "JS " and "javascript" compare equal.
type Normalizer struct {
	synonyms map[string]string
}

// NewNormalizer builds a normalizer with the default synonym table extended by extra.
func NewNormalizer(extra map[string]string) *Normalizer {
	synonyms := make(map[string]string, len(defaultSynonyms)+len(extra))
	for k, v := range defaultSynonyms {
		synonyms[k] = v
	}
	for k, v := range extra {
		synonyms[fold(k)] = fold(v)
	}
	return &Normalizer{synonyms: synonyms}
}

// Normalize returns the canonical form of a single skill, or "" for blank input.
func (n *Normalizer) Normalize(skill string) string {
	key := fold(skill)
	if canonical, ok := n.synonyms[key]; ok {
		return canonical
	}
	return key
}

// Set normalizes and deduplicates a list of skills.
func (n *Normalizer) Set(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		if norm := n.Normalize(s); norm != "" {
			set[norm] = struct{}{}
		}
	}
	return set
}

func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// skillSets holds the result of comparing candidate skills against required skills.
type skillSets struct {
	matched []string
	missing []string
	extra   []string
}

func compareSkills(candidate, required map[string]struct{}) skillSets {
	var sets skillSets
	for s := range required {
		if _, ok := candidate[s]; ok {
			sets.matched = append(sets.matched, s)
		} else {
			sets.missing = append(sets.missing, s)
		}
	}
	for s := range candidate {
		if _, ok := required[s]; !ok {
			sets.extra = append(sets.extra, s)
		}
	}

	sort.Strings(sets.matched)
	sort.Strings(sets.missing)
	sort.Strings(sets.extra)
	return sets
}

func overlap(candidate, other map[string]struct{}) int {
	n := 0
	for s := range other {
		if _, ok := candidate[s]; ok {
			n++
		}
	}
	return n
}
