package algorithms

import (
	"math"
	"strings"
	"unicode/utf8"

	"cvanalyzer_backend/internal/ai"
)

// Point weights for the extraction confidence score. The total is the
// denominator; every rule below contributes its weight when satisfied.
const (
	pointsName     = 2
	pointsEmail    = 2
	pointsPhone    = 1
	pointsLocation = 1

	pointsExperience     = 2 // at least one entry
	pointsExperienceDesc = 2 // at least one description longer than 50 chars

	pointsEducation = 2

	pointsTechnicalSkills = 1
	pointsSoftSkills      = 1

	totalPoints = pointsName + pointsEmail + pointsPhone + pointsLocation +
		pointsExperience + pointsExperienceDesc + pointsEducation +
		pointsTechnicalSkills + pointsSoftSkills
)

// ConfidenceScore grades the completeness of an extraction result on a 0-100
// scale. The score is deterministic: the same input always produces the same
// number, so it can be recomputed after reprocessing without surprising users.
func ConfidenceScore(data *ai.ResumeData) int {
	if data == nil {
		return 0
	}

	earned := 0

	if strings.TrimSpace(data.PersonalInfo.Name) != "" {
		earned += pointsName
	}
	if strings.TrimSpace(data.PersonalInfo.Email) != "" {
		earned += pointsEmail
	}
	if strings.TrimSpace(data.PersonalInfo.Phone) != "" {
		earned += pointsPhone
	}
	if strings.TrimSpace(data.PersonalInfo.Location) != "" {
		earned += pointsLocation
	}

	if len(data.Experience) > 0 {
		earned += pointsExperience
		for _, exp := range data.Experience {
			if utf8.RuneCountInString(strings.TrimSpace(exp.Description)) > 50 {
				earned += pointsExperienceDesc
				break
			}
		}
	}

	if len(data.Education) > 0 {
		earned += pointsEducation
	}

	if len(data.Skills.Technical) > 0 {
		earned += pointsTechnicalSkills
	}
	if len(data.Skills.Soft) > 0 {
		earned += pointsSoftSkills
	}

	return int(math.Round(100 * float64(earned) / float64(totalPoints)))
}

// FallbackSummary builds a one-sentence summary from structured fields when
// the generative summary call fails. Processing still completes; the summary
// is the only degraded part.
func FallbackSummary(data *ai.ResumeData) string {
	if data == nil {
		return ""
	}

	name := strings.TrimSpace(data.PersonalInfo.Name)
	if name == "" {
		name = "The candidate"
	}

	var parts []string
	if len(data.Experience) > 0 {
		latest := data.Experience[0]
		title := strings.TrimSpace(latest.Title)
		company := strings.TrimSpace(latest.Company)
		switch {
		case title != "" && company != "":
			parts = append(parts, "most recently "+title+" at "+company)
		case title != "":
			parts = append(parts, "most recently "+title)
		case company != "":
			parts = append(parts, "most recently at "+company)
		}
	}
	if n := len(data.Skills.Technical); n > 0 {
		limit := n
		if limit > 3 {
			limit = 3
		}
		parts = append(parts, "skilled in "+strings.Join(data.Skills.Technical[:limit], ", "))
	}

	if len(parts) == 0 {
		return name + " submitted a resume with limited extractable detail."
	}
	return name + ", " + strings.Join(parts, ", ") + "."
}
