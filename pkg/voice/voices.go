package voice

import "strings"

// Voice describes one synthetic speaker offered by the live service.
type Voice struct {
	// ID is the service voice identifier sent in set_voice control messages.
	ID string `json:"id"`

	// Label is the display name shown in the voice picker.
	Label string `json:"label"`

	// Language is the ISO language code, e.g. "bn" or "en".
	Language string `json:"language"`

	// Accent is a BCP-47 style region tag, e.g. "bn-BD" or "en-US".
	Accent string `json:"accent"`

	// Gender is a coarse voice character hint: "female", "male", "neutral".
	Gender string `json:"gender"`
}

var curatedVoices = []Voice{
	{
		ID:       "ayesha",
		Label:    "Ayesha",
		Language: "bn",
		Accent:   "bn-BD",
		Gender:   "female",
	},
	{
		ID:       "rahim",
		Label:    "Rahim",
		Language: "bn",
		Accent:   "bn-BD",
		Gender:   "male",
	},
	{
		ID:       "mira",
		Label:    "Mira",
		Language: "bn",
		Accent:   "bn-IN",
		Gender:   "female",
	},
	{
		ID:       "sarah",
		Label:    "Sarah",
		Language: "en",
		Accent:   "en-US",
		Gender:   "female",
	},
	{
		ID:       "daniel",
		Label:    "Daniel",
		Language: "en",
		Accent:   "en-GB",
		Gender:   "male",
	},
}

// Voices returns the curated voice catalog.
func Voices() []Voice {
	out := make([]Voice, len(curatedVoices))
	copy(out, curatedVoices)
	return out
}

// DefaultVoice returns the voice used when none is configured.
func DefaultVoice() Voice {
	return curatedVoices[0]
}

// VoiceByID looks up a voice by its identifier. The match is
// case-insensitive.
func VoiceByID(id string) (Voice, bool) {
	for _, v := range curatedVoices {
		if strings.EqualFold(v.ID, id) {
			return v, true
		}
	}
	return Voice{}, false
}

// VoicesForLanguage returns catalog voices matching the ISO language code.
func VoicesForLanguage(language string) []Voice {
	var out []Voice
	for _, v := range curatedVoices {
		if strings.EqualFold(v.Language, language) {
			out = append(out, v)
		}
	}
	return out
}
