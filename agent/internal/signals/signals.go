// Package signals classifies a generation request into a content kind and
// tone using weighted keyword dictionaries. Detection is deterministic and
// local: steering the prompt must not cost a third upstream call.
//
// The keyword→kind/tone mapping is data, not contract: the built-in lexicon
// is a default and can be replaced wholesale from a YAML file.
package signals

import (
	"strings"
)

// Kind is the coarse content category of a request.
type Kind string

const (
	KindProductLaunch Kind = "product_launch"
	KindEvent         Kind = "event"
	KindTestimonial   Kind = "testimonial"
	KindPromotion     Kind = "promotion"
	KindAnnouncement  Kind = "announcement"
	KindGeneral       Kind = "general"
)

// Tone is the stylistic register of a request.
type Tone string

const (
	TonePlayful       Tone = "playful"
	ToneFormal        Tone = "formal"
	ToneUrgent        Tone = "urgent"
	ToneInspirational Tone = "inspirational"
	ToneNeutral       Tone = "neutral"
)

// Signals is the detection result. Derived once per request, immutable.
type Signals struct {
	Kind       Kind
	Tone       Tone
	Confidence float64 // in [0,1], fraction of matched keyword weight
}

// Detector scores goal and source text against a Lexicon.
// Safe for concurrent use; the lexicon is read-only after construction.
type Detector struct {
	lex *Lexicon
}

// NewDetector creates a Detector. A nil lexicon selects the built-in default.
func NewDetector(lex *Lexicon) *Detector {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Detector{lex: lex}
}

// Detect classifies the request. It never fails: with no keyword match the
// result falls back to KindGeneral/ToneNeutral with zero confidence.
//
// The goal carries full keyword weight; extracted source text carries half,
// since the user's own words are the stronger signal.
func (d *Detector) Detect(goal, sourceText string) Signals {
	goal = strings.ToLower(goal)
	sourceText = strings.ToLower(sourceText)

	kindName, kindConf := bestCategory(d.lex.Kinds, goal, sourceText)
	toneName, toneConf := bestCategory(d.lex.Tones, goal, sourceText)

	sig := Signals{Kind: KindGeneral, Tone: ToneNeutral}
	if kindName != "" {
		sig.Kind = Kind(kindName)
	}
	if toneName != "" {
		sig.Tone = Tone(toneName)
	}

	// Average the two dimensions; an unmatched dimension contributes zero.
	sig.Confidence = (kindConf + toneConf) / 2
	if sig.Confidence > 1 {
		sig.Confidence = 1
	}
	return sig
}

// bestCategory returns the highest-scoring category name and its matched
// weight fraction, or ("", 0) when nothing matched.
func bestCategory(categories map[string][]Term, goal, sourceText string) (string, float64) {
	var bestName string
	var bestScore, bestTotal float64

	for name, terms := range categories {
		var score, total float64
		for _, t := range terms {
			w := t.Weight
			if w <= 0 {
				w = 1
			}
			total += w
			term := strings.ToLower(t.Term)
			if strings.Contains(goal, term) {
				score += w
			} else if sourceText != "" && strings.Contains(sourceText, term) {
				score += w / 2
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && name < bestName) {
			bestName, bestScore, bestTotal = name, score, total
		}
	}

	if bestScore == 0 {
		return "", 0
	}
	return bestName, bestScore / bestTotal
}
