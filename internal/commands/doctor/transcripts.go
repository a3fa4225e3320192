package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// TranscriptCheck detects transcript files without a session record.
type TranscriptCheck struct {
	sessions       chat.Sessions
	transcriptsDir string
	fix            bool
}

// NewTranscriptCheck creates a new orphaned transcript check.
// If fix is true, orphaned transcripts are deleted.
func NewTranscriptCheck(sessions chat.Sessions, transcriptsDir string, fix bool) *TranscriptCheck {
	return &TranscriptCheck{
		sessions:       sessions,
		transcriptsDir: transcriptsDir,
		fix:            fix,
	}
}

func (c *TranscriptCheck) Name() string {
	return "Orphan Transcripts"
}

func (c *TranscriptCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	sessions, err := c.sessions.List(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "List sessions",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	known := make(map[string]bool, len(sessions))
	for _, sess := range sessions {
		known[sess.ID] = true
	}

	entries, err := os.ReadDir(c.transcriptsDir)
	if os.IsNotExist(err) {
		result.Items = append(result.Items, CheckItem{
			Label:  "Transcripts directory",
			Status: StatusPass,
			Detail: "no transcripts yet",
		})
		return result
	}
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Read transcripts directory",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	var orphans []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if !known[strings.TrimSuffix(name, ".json")] {
			orphans = append(orphans, name)
		}
	}

	if len(orphans) == 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "No orphans",
			Status: StatusPass,
			Detail: "all transcripts have session records",
		})
		return result
	}

	for _, name := range orphans {
		path := filepath.Join(c.transcriptsDir, name)

		if !c.fix {
			result.Items = append(result.Items, CheckItem{
				Label:   name,
				Status:  StatusWarn,
				Detail:  "orphaned transcript (no session record)",
				Fixable: true,
			})
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Items = append(result.Items, CheckItem{
				Label:  name,
				Status: StatusFail,
				Detail: fmt.Sprintf("failed to delete: %v", err),
			})
			continue
		}
		_ = os.Remove(path + ".lock")
		result.Items = append(result.Items, CheckItem{
			Label:  name,
			Status: StatusPass,
			Detail: "deleted orphaned transcript",
		})
	}

	return result
}
