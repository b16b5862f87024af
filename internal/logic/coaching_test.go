package logic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGreeting_WithFirstName(t *testing.T) {
	g := Greeting("Dana")
	assert.Contains(t, g, "Dana")
}

func TestGreeting_WithoutFirstName(t *testing.T) {
	assert.Equal(t, GenericGreeting, Greeting(""))
	assert.Equal(t, GenericGreeting, Greeting("   "))
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		allowed bool
	}{
		{"hello", "hello", true},
		{"  hello  ", "hello", true},
		{"", "", false},
		{"   ", "", false},
		{"\n\t", "", false},
	}

	for _, tt := range tests {
		got, ok := ValidateMessage(tt.in)
		assert.Equal(t, tt.allowed, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestFirstSentence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"I keep putting off the reorg. It scares me.", "I keep putting off the reorg."},
		{"Really?! No way", "Really?"},
		{"no terminator here", "no terminator here"},
		{"  padded. more  ", "padded."},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FirstSentence(tt.in), "input %q", tt.in)
	}
}

func TestFallbackSummary_UsesFirstSentence(t *testing.T) {
	s := FallbackSummary("I want to talk about delegation. Also hiring.")
	assert.Contains(t, s, "I want to talk about delegation.")
	assert.NotContains(t, s, "Also hiring")
}

func TestFallbackSummary_EmptyInput(t *testing.T) {
	s := FallbackSummary("")
	assert.NotEmpty(t, s)
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "short", TruncateForLog("short", 100))
	long := strings.Repeat("a", 150)
	got := TruncateForLog(long, 100)
	assert.Len(t, got, 103)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestNormalizeFingerprint(t *testing.T) {
	assert.Equal(t, "ab-12cd", NormalizeFingerprint("  AB-12 cd!\n"))
	assert.Equal(t, "", NormalizeFingerprint("   "))
}
