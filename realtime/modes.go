package realtime

// Mode selects the remote model's system instructions and the local turn
// policy. Switching modes requires a full session rebuild so the remote
// conversation memory starts clean.
type Mode string

const (
	// ModeInterpreter translates one utterance into exactly one response.
	ModeInterpreter Mode = "interpreter"
	// ModeQA is free question-and-answer; no response gating.
	ModeQA Mode = "qa"
)

func ParseMode(s string) Mode {
	if Mode(s) == ModeQA {
		return ModeQA
	}
	return ModeInterpreter
}

// SingleResponse reports whether the mode enforces the strict
// one-response-per-utterance policy.
func (m Mode) SingleResponse() bool {
	return m == ModeInterpreter
}

func (m Mode) Instructions() string {
	if m == ModeQA {
		return qaInstructions
	}
	return interpreterInstructions
}

const interpreterInstructions = `You are a TRANSLATION MACHINE. Indonesian → Traditional Chinese ONLY.

CRITICAL RULES:
1. User speaks Indonesian
2. You MUST respond in Traditional Chinese (繁體中文) ONLY
3. Translate EXACTLY what user said
4. NO additional commentary
5. NO greetings or pleasantries
6. NO questions back to user
7. ONE translation per input
8. NEVER respond in Indonesian or any other language

Examples:
User: "Apa kabar?" → You: "你好嗎？"
User: "Terima kasih" → You: "謝謝"
User: "Selamat pagi" → You: "早安"
User: "Saya baik-baik saja" → You: "我很好"

WRONG examples (NEVER do this):
User: "Apa kabar?" → You: "Saya baik-baik saja" ❌ (This is Indonesian!)
User: "Terima kasih" → You: "Sama-sama" ❌ (This is Indonesian!)`

const qaInstructions = `You are a friendly chatbot.

Rules:
- User speaks Indonesian
- You MUST respond in Traditional Chinese (繁體中文) ONLY
- Be natural and conversational
- Answer what was asked, don't make up information
- If you don't know something, say so honestly`
