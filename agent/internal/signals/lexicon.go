package signals

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Term is one weighted keyword in a category.
type Term struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// Lexicon maps category names to weighted keyword lists.
// Category names become the Kind/Tone values verbatim.
type Lexicon struct {
	Kinds map[string][]Term `yaml:"kinds"`
	Tones map[string][]Term `yaml:"tones"`
}

// LoadLexicon reads a Lexicon from a YAML file and validates it.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("signals: read lexicon: %w", err)
	}
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("signals: parse lexicon: %w", err)
	}
	if err := lex.validate(); err != nil {
		return nil, err
	}
	return &lex, nil
}

func (l *Lexicon) validate() error {
	if len(l.Kinds) == 0 {
		return fmt.Errorf("signals: lexicon has no kinds")
	}
	if len(l.Tones) == 0 {
		return fmt.Errorf("signals: lexicon has no tones")
	}
	for name, terms := range l.Kinds {
		if name == "" || len(terms) == 0 {
			return fmt.Errorf("signals: kind %q has no terms", name)
		}
	}
	for name, terms := range l.Tones {
		if name == "" || len(terms) == 0 {
			return fmt.Errorf("signals: tone %q has no terms", name)
		}
	}
	return nil
}

// DefaultLexicon returns the built-in keyword dictionaries.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Kinds: map[string][]Term{
			string(KindProductLaunch): {
				{Term: "launch", Weight: 1},
				{Term: "introducing", Weight: 1},
				{Term: "new product", Weight: 1},
				{Term: "release", Weight: 0.8},
				{Term: "unveil", Weight: 0.8},
				{Term: "now available", Weight: 0.6},
			},
			string(KindEvent): {
				{Term: "event", Weight: 1},
				{Term: "webinar", Weight: 1},
				{Term: "conference", Weight: 1},
				{Term: "join us", Weight: 0.8},
				{Term: "meetup", Weight: 0.8},
				{Term: "rsvp", Weight: 0.6},
				{Term: "livestream", Weight: 0.6},
			},
			string(KindTestimonial): {
				{Term: "testimonial", Weight: 1},
				{Term: "customer story", Weight: 1},
				{Term: "review", Weight: 0.8},
				{Term: "loved by", Weight: 0.6},
				{Term: "five stars", Weight: 0.6},
			},
			string(KindPromotion): {
				{Term: "sale", Weight: 1},
				{Term: "discount", Weight: 1},
				{Term: "promo", Weight: 1},
				{Term: "% off", Weight: 0.8},
				{Term: "coupon", Weight: 0.8},
				{Term: "limited offer", Weight: 0.8},
				{Term: "deal", Weight: 0.6},
			},
			string(KindAnnouncement): {
				{Term: "announcement", Weight: 1},
				{Term: "announcing", Weight: 1},
				{Term: "we are excited", Weight: 0.6},
				{Term: "big news", Weight: 0.6},
			},
		},
		Tones: map[string][]Term{
			string(TonePlayful): {
				{Term: "playful", Weight: 1},
				{Term: "fun", Weight: 0.8},
				{Term: "witty", Weight: 0.8},
				{Term: "cheeky", Weight: 0.8},
				{Term: "quirky", Weight: 0.8},
				{Term: "emoji", Weight: 0.5},
			},
			string(ToneFormal): {
				{Term: "formal", Weight: 1},
				{Term: "professional", Weight: 0.8},
				{Term: "corporate", Weight: 0.8},
				{Term: "official", Weight: 0.6},
			},
			string(ToneUrgent): {
				{Term: "urgent", Weight: 1},
				{Term: "last chance", Weight: 1},
				{Term: "hurry", Weight: 0.8},
				{Term: "today only", Weight: 0.8},
				{Term: "act now", Weight: 0.8},
				{Term: "deadline", Weight: 0.6},
			},
			string(ToneInspirational): {
				{Term: "inspirational", Weight: 1},
				{Term: "inspiring", Weight: 1},
				{Term: "empower", Weight: 0.8},
				{Term: "journey", Weight: 0.5},
				{Term: "dream", Weight: 0.5},
			},
		},
	}
}
