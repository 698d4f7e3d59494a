package scoring

import (
	"fmt"
	"strings"

	"github.com/talentsift/talentsift/internal/repository"
)

// yearsBand is the [min, max] years-of-experience range for a level.
type yearsBand struct {
	Min float64
	Max float64
}

// levelBands maps every level to its years band.
var levelBands = map[repository.Level]yearsBand{
	repository.LevelEntry:     {Min: 0, Max: 2},
	repository.LevelMid:       {Min: 2, Max: 5},
	repository.LevelSenior:    {Min: 5, Max: 12},
	repository.LevelExecutive: {Min: 8, Max: 50},
}

// levelKeywords maps every level to title tokens that signal it.
var levelKeywords = map[repository.Level][]string{
	repository.LevelEntry:     {"junior", "jr", "intern", "graduate", "associate"},
	repository.LevelMid:       {"engineer", "developer", "analyst", "consultant"},
	repository.LevelSenior:    {"senior", "sr", "staff", "principal", "lead", "architect"},
	repository.LevelExecutive: {"cto", "vp", "director", "founder", "chief", "head of"},
}

// levelTitleWeight blends the title component into the experience score.
// Higher for senior and executive: years alone are unreliable signals for
// leadership fit.
var levelTitleWeight = map[repository.Level]float64{
	repository.LevelEntry:     0.3,
	repository.LevelMid:       0.3,
	repository.LevelSenior:    0.5,
	repository.LevelExecutive: 0.6,
}

// missingKeywordScore is the title component when no level keyword is found.
// Moderate, not severe: nuance is deferred to vector similarity.
const missingKeywordScore = 50

// neutralExperienceScore is used when no target level is requested or the
// candidate profile carries no experience data.
const neutralExperienceScore = 50

func init() {
	// Every level must have a band, a keyword set, and a title weight.
	for _, level := range repository.Levels {
		if _, ok := levelBands[level]; !ok {
			panic(fmt.Sprintf("scoring: no years band for level %q", level))
		}
		if _, ok := levelKeywords[level]; !ok {
			panic(fmt.Sprintf("scoring: no keywords for level %q", level))
		}
		if _, ok := levelTitleWeight[level]; !ok {
			panic(fmt.Sprintf("scoring: no title weight for level %q", level))
		}
	}
}

// experienceScore combines a years-band component and a title-keyword
// component for the target level.
func experienceScore(cand *repository.Candidate, target repository.Level) float64 {
	if !target.Valid() {
		return neutralExperienceScore
	}

	years := yearsScore(cand.YearsExperience, levelBands[target])
	title := missingKeywordScore
	if TitleMatchesLevel(cand.CurrentTitle, target) {
		title = 100
	}

	w := levelTitleWeight[target]
	return (1-w)*years + w*float64(title)
}

// yearsScore is 100 inside the band and decays outside it. Falling short of
// the band is penalized harder than exceeding it.
func yearsScore(years float64, band yearsBand) float64 {
	switch {
	case years >= band.Min && years <= band.Max:
		return 100
	case years < band.Min:
		score := 100 - (band.Min-years)*25
		if score < 0 {
			return 0
		}
		return score
	default:
		score := 100 - (years-band.Max)*10
		if score < 40 {
			return 40
		}
		return score
	}
}

// TitleMatchesLevel reports whether a title carries any keyword of the level.
// Shared with the rerank fallback heuristics.
func TitleMatchesLevel(title string, level repository.Level) bool {
	title = strings.ToLower(title)
	for _, kw := range levelKeywords[level] {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// YearsInBand reports whether years falls in the level's band.
func YearsInBand(years float64, level repository.Level) bool {
	band, ok := levelBands[level]
	if !ok {
		return false
	}
	return years >= band.Min && years <= band.Max
}
