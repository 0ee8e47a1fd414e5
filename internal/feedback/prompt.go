package feedback

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a warm, precise English reading tutor writing a short report for a learner who just finished an adaptive English proficiency test. Be specific and encouraging. Do not invent scores.`

func buildUserMessage(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Proficiency level: %d of 10 (%s)\n", in.Level, in.Band)
	fmt.Fprintf(&b, "Ability estimate: %.2f (standard error %.2f)\n", in.Theta, in.SE)
	fmt.Fprintf(&b, "Lexile: %dL\n", in.Lexile)
	fmt.Fprintf(&b, "AR reading level: %.1f\n", in.ARLevel)
	if in.VocabularySize > 0 {
		fmt.Fprintf(&b, "Estimated vocabulary size: %d word families\n", in.VocabularySize)
	}
	fmt.Fprintf(&b, "Overall accuracy: %.0f%%\n", in.Accuracy)

	b.WriteString("\nAccuracy by area:\n")
	if len(in.Domains) == 0 {
		b.WriteString("None\n")
	}
	for _, d := range in.Domains {
		fmt.Fprintf(&b, "- %s: %d/%d\n", d.Domain, d.Correct, d.Total)
	}

	b.WriteString(`
Instructions:
1. Summarize what the learner can already do at this level in 2-4 sentences.
2. Name strengths that the area scores support.
3. Suggest next steps that target the weakest area first.
4. Use plain text only. No markdown.`)

	return b.String()
}
