// Package router picks an analytic submode from the latest user utterance.
package router

import (
	"strings"

	"therapy-companion/internal/domain"
)

// Rule maps a submode to the cues that select it. A rule matches when any
// keyword is a substring of the input.
type Rule struct {
	Submode  domain.Submode
	Keywords []string
}

// DefaultSubmode is returned when no rule matches.
const DefaultSubmode = domain.SubmodeKeyConcepts

// Rules is evaluated top to bottom; earlier rules pre-empt later ones.
// Matching is raw substring containment with no case folding.
var Rules = []Rule{
	{
		Submode:  domain.SubmodeDreams,
		Keywords: []string{"夢", "噩夢", "作夢", "夢到", "幻想", "白日夢"},
	},
	{
		Submode:  domain.SubmodeTermination,
		Keywords: []string{"結束", "終止", "分開", "分手", "告別", "離別", "停止治療", "要不要停", "不想來了"},
	},
	{
		Submode:  domain.SubmodeResistance,
		Keywords: []string{"不想談", "說不出口", "沉默", "不知道要說什麼", "遲到", "爽約", "缺席", "想跳過", "轉移話題", "先不談"},
	},
	{
		// intellectualisation
		Submode:  domain.SubmodeResistance,
		Keywords: []string{"我知道道理", "我懂", "理論上", "分析一下", "反正就是", "講道理", "想太多", "理智化"},
	},
	{
		Submode:  domain.SubmodeCountertransference,
		Keywords: []string{"你覺得你會怎麼想", "你會不會覺得", "你是不是覺得我", "你怎麼看我", "你會不會討厭我", "你會不會失望"},
	},
	{
		Submode:  domain.SubmodeGettingStarted,
		Keywords: []string{"開始治療", "第一次", "諮商", "費用", "時間", "頻率", "遲到怎麼辦", "缺席怎麼辦", "界限", "保密"},
	},
	{
		Submode:  domain.SubmodeAssessmentFormulation,
		Keywords: []string{"適合", "需不需要治療", "我是不是", "我這樣正常嗎", "評估", "轉介", "要看身心科嗎", "診斷"},
	},
	{
		Submode:  domain.SubmodeGoalsAction,
		Keywords: []string{"目標", "我想變成", "我想改善", "怎麼改", "為什麼一直", "反覆", "關係模式", "改變不了"},
	},
	{
		Submode:  domain.SubmodeInterventions,
		Keywords: []string{"我該怎麼回", "我該怎麼說", "我該怎麼做", "怎麼應對", "怎麼跟他談", "要不要講"},
	},
	{
		Submode:  domain.SubmodeEvidence,
		Keywords: []string{"證據", "研究", "有效嗎", "文獻", "meta", "RCT", "指南"},
	},
}

// Route returns the submode of the first matching rule in Rules, or
// DefaultSubmode.
func Route(lastUserText string) domain.Submode {
	return RouteWith(Rules, lastUserText)
}

// RouteWith is Route over an explicit rule table.
func RouteWith(rules []Rule, text string) domain.Submode {
	if text == "" {
		return DefaultSubmode
	}
	for _, r := range rules {
		if r.Matches(text) {
			return r.Submode
		}
	}
	return DefaultSubmode
}

// Matches reports whether any keyword occurs in text.
func (r Rule) Matches(text string) bool {
	for _, k := range r.Keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// LastUserText returns the trimmed content of the most recent user message,
// or "" when there is none.
func LastUserText(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}
