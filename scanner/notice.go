package scanner

import (
	"fmt"
	"strings"
)

// TakedownNotice renders a plain-text infringement notice for one match,
// ready for an operator to review and send.
func TakedownNotice(m *Match, contentTitle, ownerName string) string {
	var b strings.Builder
	b.WriteString("NOTICE OF COPYRIGHT INFRINGEMENT\n")
	b.WriteString(strings.Repeat("=", 48) + "\n\n")
	fmt.Fprintf(&b, "Date: %s\n", m.DetectedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Content: %s\n", contentTitle)
	fmt.Fprintf(&b, "Rights holder: %s\n\n", ownerName)
	fmt.Fprintf(&b, "An unauthorized copy of the above content was identified at:\n  %s\n\n", m.Path)
	fmt.Fprintf(&b, "Perceptual similarity to the original: %.1f%%\n", m.Similarity*100)
	if m.Attributed() {
		fmt.Fprintf(&b, "Embedded distribution watermark: recipient %q (signature %s)\n",
			m.Identity, m.Signature)
	} else {
		b.WriteString("No intact distribution watermark was recovered from the copy.\n")
	}
	b.WriteString("\nWe request that this material be removed promptly. This notice is\n")
	b.WriteString("submitted in good faith on behalf of the rights holder.\n")
	return b.String()
}
