package gitsync

import (
	"strings"

	"github.com/starford/wikifeed/internal/models"
)

var statusNames = map[byte]string{
	'A': models.ChangeAdded,
	'M': models.ChangeModified,
	'D': models.ChangeDeleted,
	'R': models.ChangeRenamed,
	'C': models.ChangeCopied,
}

// parseNameStatus reads `git diff --name-status` output. Rename and copy
// lines carry two paths; the destination is reported.
func parseNameStatus(out string) []models.FileChange {
	changes := []models.FileChange{}
	for _, line := range nonEmptyLines(out) {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			fields = strings.Fields(line)
		}
		if len(fields) < 2 {
			continue
		}

		status, ok := statusNames[fields[0][0]]
		if !ok {
			status = models.ChangeUnknown
		}
		name := strings.TrimSpace(fields[len(fields)-1])
		changes = append(changes, models.FileChange{
			Filename:   name,
			Status:     status,
			IsMarkdown: strings.HasSuffix(name, ".md"),
		})
	}
	return changes
}
