package logic

import (
	"fmt"
	"strings"
	"unicode"
)

// ApologyMessage replaces an assistant reply when the reply collaborator
// fails. The user's own message has already been appended at that point, so
// the conversation is never left silently missing a response.
const ApologyMessage = "I'm sorry — I hit a snag on my end and couldn't respond just now. Could you send that again?"

// GenericGreeting opens a session when the user's first name is unknown.
const GenericGreeting = "Welcome. I'm glad you're here — what's on your mind today?"

// Greeting renders the initial assistant message for a new session.
func Greeting(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		return GenericGreeting
	}
	return fmt.Sprintf("Good to see you, %s. What's on your mind today?", name)
}

// ValidateMessage trims a candidate outgoing message and reports whether it
// may be sent. Empty and whitespace-only input is rejected at this boundary,
// silently, since the UI disables the send action for it.
func ValidateMessage(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	return trimmed, trimmed != ""
}

// FirstSentence returns the text up to and including the first sentence
// terminator, or the whole trimmed string if none is found.
func FirstSentence(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			return strings.TrimSpace(s[:i+len(string(r))])
		}
	}
	return s
}

// FallbackSummary derives a local session summary from the last user message
// when summary generation fails. Summary failure must never block resuming or
// ending a session.
func FallbackSummary(lastUserMessage string) string {
	sentence := FirstSentence(lastUserMessage)
	if sentence == "" {
		return "You were in the middle of a coaching conversation."
	}
	return "Last time you were talking about: " + sentence
}

// TruncateForLog shortens content for log lines without splitting runes.
func TruncateForLog(content string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}

// NormalizeFingerprint lowercases and strips a guest device fingerprint down
// to the characters that matter for rate identity.
func NormalizeFingerprint(fp string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(fp)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
