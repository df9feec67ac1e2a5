package store

import (
	"cmp"
	"maps"
	"slices"
)

// DefaultTopSkills is how many matched and missing skills Stats reports.
const DefaultTopSkills = 10

// SkillCount is a skill and how many records mention it.
type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// Stats summarizes a match history.
type Stats struct {
	TotalMatches       int          `json:"total_matches"`
	ShortlistCount     int          `json:"shortlist_count"`
	ReviewCount        int          `json:"review_count"`
	RejectCount        int          `json:"reject_count"`
	AvgConfidence      float64      `json:"avg_confidence"`
	AvgSkillScore      float64      `json:"avg_skill_match"`
	AvgExperienceScore float64      `json:"avg_experience_match"`
	AvgFinalScore      float64      `json:"avg_final_score"`
	TopMatchedSkills   []SkillCount `json:"top_matched_skills"`
	TopMissingSkills   []SkillCount `json:"top_missing_skills"`
	DistinctCandidates int          `json:"distinct_candidates"`
}

// ComputeStats aggregates records. topN limits the skill lists; values below 1
// use DefaultTopSkills. An empty history yields zero values and empty lists.
func ComputeStats(records []Record, topN int) Stats {
	if topN < 1 {
		topN = DefaultTopSkills
	}
	stats := Stats{
		TotalMatches:     len(records),
		TopMatchedSkills: []SkillCount{},
		TopMissingSkills: []SkillCount{},
	}
	if len(records) == 0 {
		return stats
	}

	matched := map[string]int{}
	missing := map[string]int{}
	candidates := map[string]struct{}{}
	var confidence, skill, experience, final float64

	for _, rec := range records {
		switch rec.Decision {
		case "SHORTLIST":
			stats.ShortlistCount++
		case "REVIEW":
			stats.ReviewCount++
		case "REJECT":
			stats.RejectCount++
		}
		confidence += rec.Confidence
		skill += rec.SkillScore
		experience += rec.ExpScore
		final += rec.FinalScore
		for _, s := range rec.MatchedSkills {
			matched[s]++
		}
		for _, s := range rec.MissingSkills {
			missing[s]++
		}
		if rec.CandidateID != "" {
			candidates[rec.CandidateID] = struct{}{}
		}
	}

	n := float64(len(records))
	stats.AvgConfidence = confidence / n
	stats.AvgSkillScore = skill / n
	stats.AvgExperienceScore = experience / n
	stats.AvgFinalScore = final / n
	stats.TopMatchedSkills = topSkills(matched, topN)
	stats.TopMissingSkills = topSkills(missing, topN)
	stats.DistinctCandidates = len(candidates)
	return stats
}

// topSkills orders by count, most frequent first, then by skill name.
func topSkills(counts map[string]int, n int) []SkillCount {
	out := make([]SkillCount, 0, len(counts))
	for _, skill := range slices.Sorted(maps.Keys(counts)) {
		out = append(out, SkillCount{Skill: skill, Count: counts[skill]})
	}
	slices.SortStableFunc(out, func(a, b SkillCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
