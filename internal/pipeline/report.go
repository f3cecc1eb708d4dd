package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/doc-analyzer/internal/model"
)

// Format renders a successful outcome with the fixed section headers of its
// variant.
func Format(o *Outcome) string {
	switch {
	case o.Fee != nil:
		return FormatFee(o.Fee)
	case o.Document != nil:
		return FormatDocument(o.Document)
	default:
		return ""
	}
}

// FormatFee renders one card per fee scenario.
func FormatFee(a *model.FeeScheduleAnalysis) string {
	var b strings.Builder
	b.WriteString("📊 **Fee Scenario Variations**\n\n")
	if len(a.Scenarios) == 0 {
		b.WriteString("No scenarios returned.\n")
		return b.String()
	}
	for _, s := range a.Scenarios {
		fmt.Fprintf(&b, "🦾 **%s - %s**\n", s.ParticipantType, s.OrderType)
		fmt.Fprintf(&b, "- Tier: %s\n", s.VolumeTier)
		fmt.Fprintf(&b, "- Fee: %s\n", s.EstimatedFee)
		fmt.Fprintf(&b, "- Rebate: %s\n", s.Rebate)
		fmt.Fprintf(&b, "- Notes: %s\n\n", s.Notes)
	}
	return b.String()
}

// FormatDocument renders the four-section summary. Sequence fields are
// joined with ", ".
func FormatDocument(a *model.DocumentAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📄 **Summary**\n%s\n\n", a.Summary)
	fmt.Fprintf(&b, "🔑 **Key Topics**\n%s\n\n", strings.Join(a.KeyTopics, ", "))
	fmt.Fprintf(&b, "⚠️ **Risks or Issues**\n%s\n\n", strings.Join(a.RisksOrIssues, ", "))
	fmt.Fprintf(&b, "✅ **Recommended Actions**\n%s\n", strings.Join(a.RecommendedActions, ", "))
	return b.String()
}
