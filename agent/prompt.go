package agent

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/plume/agent/internal/signals"
)

// promptSourceChars caps how much extracted source text is embedded in the
// draft prompt. The extractor already truncates at its own limit; this is
// the tighter prompt-side bound.
const promptSourceChars = 6000

// kindHashtags are the house per-kind hashtag suggestions fed to the
// refinement pass.
var kindHashtags = map[signals.Kind]string{
	signals.KindProductLaunch: "#launch #new",
	signals.KindEvent:         "#event #joinus",
	signals.KindTestimonial:   "#customerstory",
	signals.KindPromotion:     "#sale #deal",
	signals.KindAnnouncement:  "#news",
	signals.KindGeneral:       "",
}

// draftPrompt builds the first-pass generation prompt from the goal, the
// detected signals and whatever source text survived extraction.
func draftPrompt(req GenerationRequest, sig signals.Signals, sourceText string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write marketing copy for the following goal.\n\nGoal: %s\n", req.Goal)
	fmt.Fprintf(&sb, "Content type: %s\nTone: %s\n", sig.Kind, sig.Tone)
	if sourceText != "" {
		text := sourceText
		if r := []rune(text); len(r) > promptSourceChars {
			text = string(r[:promptSourceChars])
		}
		fmt.Fprintf(&sb, "\nReference material from %s:\n%s\n", req.SourceURL, text)
	}
	sb.WriteString("\nProduce the copy only, no preamble.")
	return sb.String()
}

// refinePrompt asks the model to tighten a draft against the house style:
// a length ceiling, a closing call to action and per-kind hashtags.
func refinePrompt(draft Draft, sig signals.Signals, maxChars int) string {
	var sb strings.Builder
	sb.WriteString("Refine the following marketing copy. Rules:\n")
	fmt.Fprintf(&sb, "- keep it under %d characters\n", maxChars)
	sb.WriteString("- end with a clear call to action\n")
	if tags := kindHashtags[sig.Kind]; tags != "" {
		fmt.Fprintf(&sb, "- include hashtags such as: %s\n", tags)
	}
	fmt.Fprintf(&sb, "- preserve the %s tone\n", sig.Tone)
	fmt.Fprintf(&sb, "\nDraft:\n%s\n\nReturn the refined copy only.", draft.Text)
	return sb.String()
}
