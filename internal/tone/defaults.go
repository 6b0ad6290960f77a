package tone

const (
	promptFormal     = "You are a professional and respectful AI assistant. Use a formal and informative tone. Avoid slang."
	promptFriendly   = "You are a friendly and cheerful AI assistant. Use casual language and be supportive."
	promptConcise    = "You are a concise AI assistant. Keep responses short and to the point."
	promptEmpathetic = "You are a compassionate AI assistant. Show empathy and offer emotional support when needed."
	promptTechnical  = "You are a technical AI assistant. Provide accurate and detailed answers using precise terminology."
)

// DefaultTable returns the built-in tone table for en-US and de-DE.
// German voices lack some English styles, so the closest available style is
// used there.
func DefaultTable() Table {
	return Table{
		"formal": {
			"en-US": {Prompt: promptFormal, Prosody: Prosody{Voice: "en-US-GuyNeural", Style: "narration-professional", Rate: "+0%", Pitch: "+0Hz", Volume: "medium"}},
			"de-DE": {Prompt: promptFormal, Prosody: Prosody{Voice: "de-DE-ConradNeural", Style: "newscast-casual", Rate: "+0%", Pitch: "+0Hz", Volume: "medium"}},
		},
		"friendly": {
			"en-US": {Prompt: promptFriendly, Prosody: Prosody{Voice: "en-US-JennyNeural", Style: "cheerful", Rate: "+10%", Pitch: "+2Hz", Volume: "medium"}},
			"de-DE": {Prompt: promptFriendly, Prosody: Prosody{Voice: "de-DE-KatjaNeural", Style: "cheerful", Rate: "+10%", Pitch: "+2Hz", Volume: "medium"}},
		},
		"concise": {
			"en-US": {Prompt: promptConcise, Prosody: Prosody{Voice: "en-US-DavisNeural", Style: "assistant", Rate: "-5%", Pitch: "-2Hz", Volume: "medium"}},
			"de-DE": {Prompt: promptConcise, Prosody: Prosody{Voice: "de-DE-ConradNeural", Style: "assistant", Rate: "-5%", Pitch: "-2Hz", Volume: "medium"}},
		},
		"empathetic": {
			"en-US": {Prompt: promptEmpathetic, Prosody: Prosody{Voice: "en-US-AmberNeural", Style: "empathetic", Rate: "+5%", Pitch: "+2Hz", Volume: "medium"}},
			"de-DE": {Prompt: promptEmpathetic, Prosody: Prosody{Voice: "de-DE-KatjaNeural", Style: "empathetic", Rate: "+5%", Pitch: "+2Hz", Volume: "medium"}},
		},
		"technical": {
			"en-US": {Prompt: promptTechnical, Prosody: Prosody{Voice: "en-US-BrandonNeural", Style: "narration-professional", Rate: "-2%", Pitch: "-1Hz", Volume: "medium"}},
			"de-DE": {Prompt: promptTechnical, Prosody: Prosody{Voice: "de-DE-ConradNeural", Style: "newscast-casual", Rate: "-2%", Pitch: "-1Hz", Volume: "medium"}},
		},
	}
}

// Default returns a Store over DefaultTable.
func Default() *Store {
	s, err := NewStore(DefaultTable(), DefaultTone)
	if err != nil {
		panic("tone: built-in table is invalid: " + err.Error())
	}
	return s
}
