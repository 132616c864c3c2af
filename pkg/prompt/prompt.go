package prompt

import (
	"fmt"
	"strings"

	"personasim/pkg/history"
	"personasim/pkg/persona"
)

// Mode shapes the roleplay interaction style.
type Mode string

const (
	ModeInterview Mode = "interview"
	ModeScenario  Mode = "scenario"
	ModeUsability Mode = "usability"
)

// ParseMode validates a client-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeInterview:
		return ModeInterview, nil
	case ModeScenario:
		return ModeScenario, nil
	case ModeUsability:
		return ModeUsability, nil
	}
	return "", fmt.Errorf("unrecognized mode %q", s)
}

// Message is one entry of the assembled prompt payload.
type Message struct {
	Role    string
	Content string
}

// ElisionMarker replaces the middle of an over-budget dossier.
const ElisionMarker = "\n\n[... dossier truncated ...]\n\n"

// TruncateDossier bounds dossier text to at most budget characters,
// marker included. The opening ~80% and closing ~20% are kept so the
// persona's identity/context and closing details both survive.
func TruncateDossier(text string, budget int) string {
	if budget <= 0 || len(text) <= budget {
		return text
	}
	if budget <= len(ElisionMarker) {
		return text[:budget]
	}
	keep := budget - len(ElisionMarker)
	head := keep * 8 / 10
	tail := keep - head
	return text[:head] + ElisionMarker + text[len(text)-tail:]
}

func modeSection(mode Mode) string {
	switch mode {
	case ModeScenario:
		return "ACTIVE MODE: Scenario Mode. The user proposes a situation. Walk through it as the persona: what you notice, what you assume, what you do, and where you would give up."
	case ModeUsability:
		return "ACTIVE MODE: Usability Mode. The user describes a flow or prototype. Think aloud naturally as the persona while working through it."
	default:
		return "ACTIVE MODE: Interview Mode. The user asks questions. Answer candidly, give an example, and say what matters to you."
	}
}

const firstReplySection = `FIRST REPLY
This is your first reply of the session. Include this sentence exactly once: "FYI: I'm a synthetic simulation of this persona—not a real person."
Then explain, in plain language, the out-of-character commands the user can type (OOC:, /meta, /debrief, /persona-summary, /assumptions) and what each one does. Refer to Out of Character in full the first time; after that use OOC.`

const laterReplySection = `CONTINUING SESSION
The simulation disclosure has already been given. Do not repeat it.`

const systemPromptTemplate = `You are Persona Simulator, a synthetic persona simulation engine.

PURPOSE
Simulate a persona based ONLY on the dossier below. Persona fidelity is more important than being broadly helpful.

%s

LOADING A PERSONA
1. Ingest the dossier and build an internal model: identity, context, goals, pains, behaviors, decision drivers, knowledge boundaries, voice/tone.
2. If the dossier is too thin, ask up to 3 clarifying questions—otherwise, proceed.

ROLEPLAY RULES
- Speak in first person as a real person, not a summary.
- Stay consistent with the dossier across turns.
- Knowledge boundaries: Answer what the persona would know; say "I don't know" for what they wouldn't.
- No invention: Don't fabricate specifics (addresses, salaries, diagnoses) not in the dossier.
- Prefer general plausibility over fake precision.
- Do not ask the user questions while in character.
- Do not break character to help the user.

%s

OOC COMMANDS
Respond [Out of Character] when user types: OOC:, /meta, /debrief, /persona-summary, /assumptions

- /persona-summary → Traits, needs, pains, decision drivers, voice notes, unknowns
- /assumptions → List gaps you're filling in
- /debrief → Summarize insights from the interaction
- /meta → Explain your interpretation of the dossier

Return to roleplay after OOC unless told otherwise.

SAFETY
- Don't claim to be real or have real private data.
- Treat dossiers of real people as fictionalized composites.
- For medical/legal/financial: respond in character, then add brief [OOC] note to consult a professional.

CORE PRINCIPLE
When uncertain, prefer "I don't know" (in character) over guessing.

Use the behavioural policy below together with the dossier.
When making decisions, recommendations, prioritisation choices, or explanations, follow the objectives, rules, thresholds, and constraints it defines.
If there is ambiguity, default to the persona's primary objectives and decision hierarchy.

--- PERSONA DOSSIER ---
%s
--- END DOSSIER ---

--- BEHAVIOUR POLICY ---
%s
--- END POLICY ---`

// Assemble builds the full prompt payload: one system message, the
// normalized history in order, then the new user message. Deterministic
// for identical inputs.
func Assemble(p *persona.Persona, mode Mode, firstReply bool, turns []history.Turn, message string, dossierBudget int) []Message {
	replySection := laterReplySection
	if firstReply {
		replySection = firstReplySection
	}

	system := fmt.Sprintf(systemPromptTemplate,
		replySection,
		modeSection(mode),
		TruncateDossier(p.Dossier, dossierBudget),
		p.Policy,
	)

	msgs := make([]Message, 0, len(turns)+2)
	msgs = append(msgs, Message{Role: "system", Content: system})
	for _, t := range turns {
		msgs = append(msgs, Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, Message{Role: history.RoleUser, Content: message})
	return msgs
}
