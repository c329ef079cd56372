package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/radrebel/fedscout/internal/models"
)

// Filename returns a safe .md filename for a job ID.
func Filename(jobID string) string {
	var b strings.Builder
	for _, r := range jobID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	name := b.String()
	if name == "" {
		name = "job"
	}
	return name + ".md"
}

// Render produces the Markdown document for a posting.
func Render(job models.Job, exportedAt time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", job.Title)
	fmt.Fprintf(&b, "- **ID:** %s\n", job.ID)
	if job.Organization != "" {
		fmt.Fprintf(&b, "- **Organization:** %s\n", job.Organization)
	}
	if job.Department != "" {
		fmt.Fprintf(&b, "- **Department:** %s\n", job.Department)
	}
	if job.Location != "" {
		fmt.Fprintf(&b, "- **Location:** %s\n", job.Location)
	}
	if job.SalaryMin > 0 || job.SalaryMax > 0 {
		fmt.Fprintf(&b, "- **Salary:** $%.0f - $%.0f\n", job.SalaryMin, job.SalaryMax)
	}
	if !job.PostedAt.IsZero() {
		fmt.Fprintf(&b, "- **Posted:** %s\n", job.PostedAt.Format("2006-01-02"))
	}
	if !job.ClosesAt.IsZero() {
		fmt.Fprintf(&b, "- **Closes:** %s\n", job.ClosesAt.Format("2006-01-02"))
	}
	if job.URL != "" {
		fmt.Fprintf(&b, "- **Apply:** %s\n", job.URL)
	}
	fmt.Fprintf(&b, "\nExported %s\n", exportedAt.Format("2006-01-02 15:04"))
	return []byte(b.String())
}
