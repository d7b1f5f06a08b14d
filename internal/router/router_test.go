package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"therapy-companion/internal/domain"
)

func TestRoute_EachRuleIndependently(t *testing.T) {
	for _, r := range Rules {
		for _, k := range r.Keywords {
			got := RouteWith([]Rule{r}, "前文"+k+"後文")
			require.Equal(t, r.Submode, got, "keyword=%q", k)
		}
	}
}

func TestRoute_DreamsWinOverLowerPriorityCues(t *testing.T) {
	inputs := []string{
		"我夢到要結束治療",
		"昨晚作夢，我不想談這個",
		"你會不會覺得我的噩夢很奇怪",
		"第一次諮商前一晚我夢到你",
		"有研究說白日夢有效嗎",
		"我想改善一直做噩夢的狀況",
	}
	for _, in := range inputs {
		require.Equal(t, domain.SubmodeDreams, Route(in), "in=%q", in)
	}
}

func TestRoute_PriorityOrder(t *testing.T) {
	// termination is listed before resistance
	require.Equal(t, domain.SubmodeTermination, Route("我不想談，想要結束了"))
	// resistance is listed before getting_started, even on the "遲到" overlap
	require.Equal(t, domain.SubmodeResistance, Route("遲到怎麼辦"))
	// intellectualisation cues also route to resistance
	require.Equal(t, domain.SubmodeResistance, Route("理論上我懂啦"))
	require.Equal(t, domain.SubmodeCountertransference, Route("你會不會討厭我"))
	require.Equal(t, domain.SubmodeAssessmentFormulation, Route("要看身心科嗎"))
	require.Equal(t, domain.SubmodeGoalsAction, Route("為什麼一直重複一樣的關係模式"))
	require.Equal(t, domain.SubmodeInterventions, Route("我該怎麼回他"))
	require.Equal(t, domain.SubmodeEvidence, Route("這個有RCT支持嗎"))
}

func TestRoute_NoMatchReturnsDefault(t *testing.T) {
	for _, in := range []string{"", "今天天氣很好", "hello", "rct"} {
		require.Equal(t, DefaultSubmode, Route(in), "in=%q", in)
	}
}

func TestRoute_NoCaseFolding(t *testing.T) {
	require.Equal(t, domain.SubmodeEvidence, Route("RCT"))
	require.Equal(t, DefaultSubmode, Route("Rct"))
	require.Equal(t, DefaultSubmode, Route("META"))
}

func TestLastUserText(t *testing.T) {
	require.Empty(t, LastUserText(nil))
	require.Empty(t, LastUserText([]domain.Message{{Role: domain.RoleAssistant, Content: "hi"}}))

	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleAssistant, Content: "reply"},
		{Role: domain.RoleUser, Content: "  second  "},
		{Role: domain.RoleAssistant, Content: "reply again"},
	}
	require.Equal(t, "second", LastUserText(msgs))
}

func TestRoute_EmptyHistoryIsDefault(t *testing.T) {
	require.Equal(t, DefaultSubmode, Route(LastUserText(nil)))
}
