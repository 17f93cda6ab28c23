package vision

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FallbackResult is the offline classifier's verdict. Every fallback outcome
// counts as a civic issue: when the external classifier is unreachable the
// system must not block citizen reporting, so unclassifiable images are still
// accepted pending manual review.
type FallbackResult struct {
	Title            string
	Description      string
	RawDescription   string
	Severity         string
	Action           string
	ValidationReason string
	IsGeneric        bool
}

type issueRule struct {
	match          func(name string) bool
	title          string
	rawDescription string
	description    string
	severity       string
	action         string
}

// issueRules are evaluated in order and the first match wins. Order matters
// because categories overlap: the streetlight rule needs "street" together
// with "light"/"lamp" and must run before the generic road rule, which
// matches "street" alone.
var issueRules = []issueRule{
	{
		match: containsAny("pothole", "hole", "crack"),
		title: "Road Damage - Pothole/Crack Detected",
		rawDescription: "Damaged road surface with visible pothole or crack",
		description: "Road surface damage detected. The image shows a pothole or crack in the road that poses a safety hazard to vehicles and pedestrians. This requires immediate attention to prevent accidents and further deterioration.",
		severity: "High - Safety hazard",
		action:   "Road repair and resurfacing required",
	},
	{
		match: containsAny("garbage", "trash", "waste", "dump"),
		title: "Waste Management Issue - Garbage Accumulation",
		rawDescription: "Garbage or waste accumulation in public area",
		description: "Improper waste disposal or garbage accumulation detected. The image shows trash or waste materials that need to be cleared. This creates health hazards and environmental concerns.",
		severity: "Medium - Health and sanitation concern",
		action:   "Waste collection and area cleaning required",
	},
	{
		match: func(name string) bool {
			return strings.Contains(name, "street") &&
				(strings.Contains(name, "light") || strings.Contains(name, "lamp"))
		},
		title: "Street Lighting Issue",
		rawDescription: "Streetlight malfunction or damage",
		description: "Street lighting infrastructure issue detected. The image shows a non-functional or damaged streetlight that affects public safety, especially during nighttime.",
		severity: "Medium - Public safety concern",
		action:   "Electrical repair or bulb replacement needed",
	},
	{
		match: containsAny("drain", "sewer", "water", "flood"),
		title: "Drainage System Problem",
		rawDescription: "Drainage or water logging issue",
		description: "Drainage system malfunction detected. The image shows water logging, blocked drains, or sewage overflow that requires immediate attention to prevent flooding and health hazards.",
		severity: "High - Flooding risk",
		action:   "Drainage cleaning and repair required",
	},
	{
		match: containsAny("road", "street", "pavement"),
		title: "Road Infrastructure Issue",
		rawDescription: "Road or pavement infrastructure problem",
		description: "Road infrastructure problem detected. The image shows damage or deterioration to road or pavement that affects traffic flow and pedestrian safety.",
		severity: "Medium - Infrastructure maintenance needed",
		action:   "Road maintenance and repair required",
	},
	{
		match: containsAny("tree", "branch"),
		title: "Tree/Vegetation Hazard",
		rawDescription: "Fallen tree or hazardous branch",
		description: "Tree or vegetation hazard detected. The image shows a fallen tree, broken branch, or overgrown vegetation that poses a safety risk or blocks public pathways.",
		severity: "Medium - Safety hazard",
		action:   "Tree removal or trimming required",
	},
	{
		match: containsAny("sign", "signal", "traffic"),
		title: "Traffic Infrastructure Issue",
		rawDescription: "Traffic sign or signal malfunction",
		description: "Traffic infrastructure problem detected. The image shows damaged, missing, or malfunctioning traffic signs or signals that affect road safety and traffic management.",
		severity: "High - Traffic safety concern",
		action:   "Sign/signal repair or replacement needed",
	},
}

func containsAny(keywords ...string) func(string) bool {
	return func(name string) bool {
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				return true
			}
		}
		return false
	}
}

// ClassifyFromMetadata derives a report title and description from the image
// file's metadata alone. Deterministic and offline: the keyword match runs
// against the lowercased filename with its extension stripped.
func ClassifyFromMetadata(fileName string, fileSizeBytes int64, capturedAt time.Time) *FallbackResult {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	name := strings.ToLower(base)

	timestamp := capturedAt.Format("2 Jan 2006, 3:04 PM")
	sizeKB := fmt.Sprintf("%.2f", float64(fileSizeBytes)/1024)

	for _, rule := range issueRules {
		if !rule.match(name) {
			continue
		}

		description := rule.description + "\n\n" +
			"**Location Details:** Please verify the exact location on the map.\n" +
			fmt.Sprintf("**Reported:** %s\n", timestamp) +
			fmt.Sprintf("**Severity:** %s\n", rule.severity) +
			fmt.Sprintf("**Recommended Action:** %s\n\n", rule.action) +
			fmt.Sprintf("Image file: %s (%s KB)", fileName, sizeKB)

		return &FallbackResult{
			Title:            rule.title,
			Description:      description,
			RawDescription:   rule.rawDescription,
			Severity:         rule.severity,
			Action:           rule.action,
			ValidationReason: "Issue identified from file details",
		}
	}

	// No keyword matched: accept anyway with a generic description and flag
	// the report for manual review.
	description := "A civic infrastructure issue has been reported. Please review the attached image to identify the specific problem.\n\n" +
		fmt.Sprintf("**Reported:** %s\n", timestamp) +
		fmt.Sprintf("**Image file:** %s (%s KB)\n\n", fileName, sizeKB) +
		"**Note:** AI analysis was unavailable. Manual review required."

	return &FallbackResult{
		Title:            "Civic Infrastructure Issue Reported",
		Description:      description,
		RawDescription:   "Civic infrastructure problem requiring assessment",
		Severity:         "To be assessed",
		Action:           "Assessment and appropriate action required",
		ValidationReason: "AI analysis unavailable. Assuming valid civic issue pending manual review.",
		IsGeneric:        true,
	}
}
