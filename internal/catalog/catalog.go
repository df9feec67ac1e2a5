// Package catalog loads job postings from JSON catalogs with loosely named fields.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/profile"
)

// keyAliases maps normalized source keys to the mapstructure keys of profile.JobRequirement.
var keyAliases = map[string]string{
	"job_id":               "job_id",
	"id":                   "job_id",
	"job_title":            "title",
	"title":                "title",
	"company":              "company_name",
	"company_name":         "company_name",
	"skills":               "required_skills",
	"skills_required":      "required_skills",
	"required_skills":      "required_skills",
	"preferred_skills":     "preferred_skills",
	"nice_to_have":         "preferred_skills",
	"min_experience_years": "min_experience_years",
	"min_years":            "min_experience_years",
	"max_experience_years": "max_experience_years",
	"max_years":            "max_experience_years",
	"education":            "min_education",
	"min_education":        "min_education",
	"description":          "description",
	"job_description":      "description",
	"qualifications":       "description",
}

// Loader decodes job catalogs. Records that cannot be decoded are logged and skipped.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(l *zap.Logger) *Loader {
	return &Loader{logger: logger.WithFields(l)}
}

// LoadFile reads a catalog from a JSON file holding either an array of jobs or
// an object with a "jobs" array.
func (l *Loader) LoadFile(path string) ([]profile.JobRequirement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open job catalog: %w", err)
	}
	defer f.Close()

	jobs, err := l.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load job catalog %s: %w", path, err)
	}
	return jobs, nil
}

func (l *Loader) Load(r io.Reader) ([]profile.JobRequirement, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		var wrapped struct {
			Jobs []map[string]any `json:"jobs"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("catalog must be an array of jobs or an object with a jobs array: %w", err)
		}
		records = wrapped.Jobs
	}
	return l.DecodeRecords(records), nil
}

// DecodeRecords normalizes raw records into jobs. A missing required-skills field is
// kept as nil so that the job is reported as malformed when it is scored.
func (l *Loader) DecodeRecords(records []map[string]any) []profile.JobRequirement {
	jobs := make([]profile.JobRequirement, 0, len(records))
	for i, record := range records {
		job, err := Decode(record)
		if err != nil {
			l.logger.Warn("skipping undecodable job record", zap.Int("index", i), zap.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}
	l.logger.Debug("job catalog decoded", zap.Int("records", len(records)), zap.Int("jobs", len(jobs)))
	return jobs
}

// Decode converts one raw record into a job.
func Decode(record map[string]any) (profile.JobRequirement, error) {
	normalized, err := normalize(record)
	if err != nil {
		return profile.JobRequirement{}, err
	}

	var job profile.JobRequirement
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			splitSkillsHook,
			mapstructure.TextUnmarshallerHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &job,
	})
	if err != nil {
		return profile.JobRequirement{}, fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(normalized); err != nil {
		return profile.JobRequirement{}, fmt.Errorf("decode job record: %w", err)
	}
	return job, nil
}

// normalize maps raw keys onto job fields. Keys are visited in sorted order and
// explicit fields take precedence over experience_required, which takes
// precedence over a parsed "Experience" range.
func normalize(record map[string]any) (map[string]any, error) {
	explicit := make(map[string]any, len(record))
	var nested, parsed map[string]any
	var descriptions []string

	for _, key := range slices.Sorted(maps.Keys(record)) {
		value := record[key]
		norm := normalizeKey(key)
		switch norm {
		case "experience":
			lo, hi, err := experienceValue(value)
			if err != nil {
				return nil, err
			}
			parsed = map[string]any{"min_experience_years": lo, "max_experience_years": hi}
			continue
		case "experience_required":
			obj, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("experience_required must be an object, got %T", value)
			}
			nested = make(map[string]any, len(obj))
			for _, k := range slices.Sorted(maps.Keys(obj)) {
				if target, ok := keyAliases[normalizeKey(k)]; ok {
					nested[target] = obj[k]
				}
			}
			continue
		}

		target, ok := keyAliases[norm]
		if !ok {
			continue
		}
		if target == "description" {
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				descriptions = append(descriptions, strings.TrimSpace(s))
			}
			continue
		}
		explicit[target] = value
	}

	out := make(map[string]any, len(explicit)+3)
	for _, layer := range []map[string]any{parsed, nested, explicit} {
		maps.Copy(out, layer)
	}
	if len(descriptions) > 0 {
		out["description"] = strings.Join(descriptions, "\n")
	}
	return out, nil
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(key)
}
