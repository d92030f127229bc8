package storyboard

import "strings"

const notAvailable = "N/A"

// FormatOverview renders the scene overview as the short markdown summary
// shown next to the working image.
func FormatOverview(o SceneOverview) string {
	var sb strings.Builder
	sb.WriteString("**Scene:** " + or(o.Description, notAvailable) + "\n")
	sb.WriteString("**Main Subject:** " + or(o.MainSubject, notAvailable) + "\n")
	sb.WriteString("**Mood:** " + or(o.Mood, notAvailable) + "\n")
	sb.WriteString("**Camera Options:** " + or(o.CameraOpportunities, notAvailable) + "\n")
	sb.WriteString("**Motion Potential:** " + or(o.MotionPotential, notAvailable))
	return sb.String()
}
