package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fpang/skybox-viewer/internal/panorama"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatStyle renders one catalog row: id, selector label and whether a
// preview exists, with the description on an indented second line.
func FormatStyle(s panorama.Style) string {
	preview := "no preview"
	if s.HasPreview() {
		preview = "preview"
	}
	row := fmt.Sprintf("%4d  %s  [%s]", s.ID, s.Label(), preview)
	if desc := strings.TrimSpace(s.Description); desc != "" {
		row += "\n      " + desc
	}
	return row
}

// FormatDescriptor renders a panorama descriptor as labelled lines.
func FormatDescriptor(d panorama.Descriptor) string {
	var b strings.Builder
	if d.Title != "" {
		fmt.Fprintf(&b, "Title:  %s\n", d.Title)
	}
	if d.Prompt != "" {
		fmt.Fprintf(&b, "Prompt: %s\n", d.Prompt)
	}
	if d.Description != "" {
		fmt.Fprintf(&b, "About:  %s\n", d.Description)
	}
	fmt.Fprintf(&b, "Image:  %s\n", d.ImageURL)
	return b.String()
}
