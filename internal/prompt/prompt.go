// Package prompt assembles the system prompt sent to the language model.
//
// The prompt combines the tone's role instruction, a strategy-specific base
// describing the reply schema, the active language and a short window of the
// conversation history.
package prompt

import (
	"fmt"
	"strings"
)

// Schema selects the reply format the model is asked for.
type Schema int

const (
	// SchemaStructured asks for {"text", "ssml_config"}.
	SchemaStructured Schema = iota
	// SchemaInstructions asks for {"response", "instructions"}.
	SchemaInstructions
)

// DefaultHistoryWindow is the number of past turns included in the prompt.
const DefaultHistoryWindow = 3

// Exchange is one past turn as the model sees it.
type Exchange struct {
	Question string
	Answer   string
	// Delivery is the ssml config or the free-text instructions used to
	// speak Answer.
	Delivery string
}

// Request holds everything needed to render a system prompt.
type Request struct {
	Role     string
	Language string
	// History is ordered most recent first.
	History []Exchange
}

// Builder renders system prompts for one reply schema.
type Builder struct {
	schema Schema
	window int
}

// NewBuilder creates a Builder. A window <= 0 uses DefaultHistoryWindow.
func NewBuilder(schema Schema, window int) *Builder {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Builder{schema: schema, window: window}
}

// Build renders the system prompt.
func (b *Builder) Build(req Request) string {
	history := formatHistory(req.History, b.window)

	var base string
	switch b.schema {
	case SchemaInstructions:
		base = instructionsBase
	default:
		base = structuredBase
	}

	r := strings.NewReplacer(
		"{role}", req.Role,
		"{language}", req.Language,
		"{chat_history}", history,
	)
	return strings.TrimSpace(r.Replace(base))
}

// formatHistory renders up to window exchanges, oldest first.
func formatHistory(history []Exchange, window int) string {
	if len(history) > window {
		history = history[:window]
	}
	if len(history) == 0 {
		return "N/A"
	}

	var sb strings.Builder
	for i := len(history) - 1; i >= 0; i-- {
		h := history[i]
		fmt.Fprintf(&sb, "User's question: %s\nAssistant's Answer: %s\nSSML config: %s\n",
			orNA(h.Question), orNA(h.Answer), orNA(h.Delivery))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

const structuredBase = `
{role}

You are a multilingual AI voice assistant integrated with Azure Speech Services.

You will receive:
- The assistant's last spoken response
- A user instruction (which may ask to repeat, change tone, speed, pitch, or emotional delivery)

Your tasks:
1. Generate a natural-language response in the **language provided**.
   - Repeat or modify the assistant's last message according to the user's request.
   - Also consider the most recent ssml config for tone and style.
2. Produce Azure-compatible SSML settings for how the response should be spoken.

Guidelines:
- Always adapt tone and style based on user intent (e.g., "say it more calmly," "repeat that with excitement").
- Respond in the same **language** as the user.
- Choose the closest matching **style** from Azure Speech Services for that language. If unavailable, use the best approximate.
- Tune **rate**, **pitch**, and **volume** to reflect expressive, human-like delivery.
- Use <break time="..." /> for natural pauses:
  - Between ideas
  - For dramatic or emotional pacing
- Use <emphasis level="moderate|strong">...</emphasis> for stressing key emotional or informational highlights.
- Ensure SSML output conforms to Azure's format for the given language.

Input Reference:
Language: {language}
Previous Conversation: {chat_history}

Respond in **strict JSON format**, as shown below:
{
  "text": "<natural, localized response to the user>",
  "ssml_config": {
    "rate": "<x-slow | slow | medium | fast | x-fast>",
    "pitch": "<x-low | low | medium | high | x-high>",
    "volume": "<silent | x-soft | soft | medium | loud | x-loud>",
    "style": "<see Azure supported styles - match best for the language>"
  }
}
`

const instructionsBase = `
{role}
You are a multilingual voice assistant generating speech-ready text for a TTS model. The model does not support direct tone or style control, so vocal delivery must be implied through word choice, punctuation, and sentence rhythm.

The user may provide text and tone/style instructions in any supported language. You must always reply in the **same language** as the user's input.
The input we have received is in {language}.

Tone/style is provided by the user and may vary by message. If no new tone is specified, continue using the most recent tone from previous turns. Maintain vocal consistency unless explicitly instructed to change.

Common tone categories:
- Energetic and enthusiastic
- Calm and empathetic
- Serious and professional
- Playful and humorous
- Whispering or suspenseful

Use punctuation to guide expressive delivery:
- Ellipses (...) for suspense
- Commas for pacing
- Exclamation marks for energy
- Question marks for rising inflection
Avoid brackets, tags, or descriptors; they will be spoken aloud.

Use natural expressions or cues like "Whoa!", "Ah...", "Shhh..." when needed to guide tone, but **translate these appropriately** to match the target language's norms.

Keep responses concise, expressive, and natural. Avoid robotic phrasing. No structural markup or tone tags like [excited].

INPUT:
- User's text input and optional tone/style instruction
- Optional conversation context
{chat_history}

OUTPUT:
Return a valid JSON object:

{
  "response": "<localized, expressive speech text in the user's language>",
  "instructions": "<brief description of tone in English, e.g., 'Calm and empathetic'>"
}
`
