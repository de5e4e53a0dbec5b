package ingest

import (
	"strings"
)

// Keywords that mark an email as plausibly job-related. The gate only has to
// keep marketing blasts and trading alerts out of the tracker; extraction
// still decides whether the email carries enough information.
var jobKeywords = []string{
	"application", "applied", "applying", "interview", "position", "role",
	"recruiter", "recruiting", "hiring", "candidate", "candidacy", "resume",
	"cv", "job", "offer", "opportunity", "talent", "career", "screening",
}

// LooksJobRelated is the local keyword heuristic behind the relevance gate,
// used when neither the payload nor the AI detector settled the question.
func LooksJobRelated(subject, body string) bool {
	content := strings.ToLower(subject + " " + body)
	for _, keyword := range jobKeywords {
		if strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}
