package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/doc-analyzer/internal/model"
)

func TestFormatFee(t *testing.T) {
	out := FormatFee(&model.FeeScheduleAnalysis{Scenarios: []model.FeeScenario{
		{ParticipantType: "Member", VolumeTier: "Tier A", OrderType: "Market", EstimatedFee: "$0.003", Rebate: "None", Notes: "n1"},
		{ParticipantType: "Non-Member", VolumeTier: "Tier B", OrderType: "Limit", EstimatedFee: "$0.002", Rebate: "$0.001", Notes: "n2"},
	}})

	want := "📊 **Fee Scenario Variations**\n\n" +
		"🦾 **Member - Market**\n- Tier: Tier A\n- Fee: $0.003\n- Rebate: None\n- Notes: n1\n\n" +
		"🦾 **Non-Member - Limit**\n- Tier: Tier B\n- Fee: $0.002\n- Rebate: $0.001\n- Notes: n2\n\n"
	assert.Equal(t, want, out)
}

func TestFormatFee_NoScenarios(t *testing.T) {
	out := FormatFee(&model.FeeScheduleAnalysis{})
	assert.Equal(t, "📊 **Fee Scenario Variations**\n\nNo scenarios returned.\n", out)
}

func TestFormatDocument(t *testing.T) {
	out := FormatDocument(&model.DocumentAnalysis{
		Summary:            "A lease.",
		KeyTopics:          []string{"rent", "term"},
		RisksOrIssues:      []string{"renewal"},
		RecommendedActions: []string{"negotiate", "sign"},
	})

	want := "📄 **Summary**\nA lease.\n\n" +
		"🔑 **Key Topics**\nrent, term\n\n" +
		"⚠️ **Risks or Issues**\nrenewal\n\n" +
		"✅ **Recommended Actions**\nnegotiate, sign\n"
	assert.Equal(t, want, out)
}

func TestFormat_PicksVariant(t *testing.T) {
	fee := &Outcome{Fee: &model.FeeScheduleAnalysis{}}
	assert.Contains(t, Format(fee), "Fee Scenario Variations")

	doc := &Outcome{Document: &model.DocumentAnalysis{Summary: "s"}}
	assert.Contains(t, Format(doc), "📄 **Summary**")

	assert.Equal(t, "", Format(&Outcome{}))
}
