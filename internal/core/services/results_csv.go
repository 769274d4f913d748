package services

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

const resultsCSVHeader = "Position,Candidate,Votes,Percentage,Election,Total_Votes,Eligible_Voters,Generated_At"

// writeResultsCSV renders one row per candidate. Lines are joined with "\n"
// and the file has no trailing newline, matching existing exports.
func writeResultsCSV(w io.Writer, r *domain.TallyResult) error {
	lines := []string{resultsCSVHeader}

	generatedAt := r.GeneratedAt.UTC().Format(time.RFC3339Nano)
	election := escapeCSVField(r.Title)
	for _, p := range r.Positions {
		position := escapeCSVField(p.PositionTitle)
		for _, c := range p.Candidates {
			lines = append(lines, strings.Join([]string{
				position,
				escapeCSVField(c.CandidateName),
				strconv.Itoa(c.VoteCount),
				strconv.FormatFloat(c.Percentage, 'f', 2, 64),
				election,
				strconv.Itoa(r.TotalVotes),
				strconv.Itoa(r.EligibleVoters),
				generatedAt,
			}, ","))
		}
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func escapeCSVField(field string) string {
	if strings.ContainsAny(field, ",\"\n") {
		return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	return field
}
