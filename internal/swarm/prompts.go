package swarm

import (
	"fmt"
	"strings"
)

// judgeEvidenceLimit bounds the visual/video evidence included in the
// judge prompt.
const judgeEvidenceLimit = 2500

// claimSourceLimit bounds the video material fed to claim synthesis.
const claimSourceLimit = 1500

func judgePrompt(claim, searchEvidence, visualEvidence string) string {
	return fmt.Sprintf(`Act as Veritas Protocol Judge.
User Claim: "%s"

SEARCH EVIDENCE: %s
VISUAL/VIDEO EVIDENCE: %s

INSTRUCTIONS:
1. If the User Claim is just a URL (http...) and no other evidence exists, mark UNVERIFIED.
2. If SEARCH EVIDENCE confirms the claim (or part of the video Title), mark REAL.
3. If SEARCH EVIDENCE proves it false, mark FAKE.
4. If evidence is missing, check logic: Is the claim plausible?
5. Weigh news and fact-check sources above generic web results.
6. An empty fact-check result set for a dramatic claim is weak evidence of fabrication.
7. Evidence of recent public activity contradicts claims that someone recently died or was incapacitated.
8. Ignore evidence clearly older than the timeframe the claim implies.

Return STRICT JSON:
{
    "verdict": "REAL" | "FAKE" | "UNVERIFIED",
    "confidence_score": int,
    "summary": "Brief explanation.",
    "sources": [ {"name": "Source Name", "url": "https://..."} ]
}`, claim, searchEvidence, truncate(visualEvidence, judgeEvidenceLimit))
}

func claimSynthesisPrompt(title, description, transcript string) string {
	var sb strings.Builder
	sb.WriteString("Write exactly one short factual sentence stating the main checkable claim made by this video. ")
	sb.WriteString("No preamble, no quotes, just the sentence.\n")
	if title != "" {
		sb.WriteString("Title: " + title + "\n")
	}
	if description != "" {
		sb.WriteString("Description: " + description + "\n")
	}
	if transcript != "" {
		sb.WriteString("Transcript: " + truncate(transcript, claimSourceLimit) + "\n")
	}
	return sb.String()
}

func visionPrompt() string {
	return "Describe this image for a fact-checker:"
}

func plausibilityPrompt(claim string) string {
	return "Check logic: " + claim
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
