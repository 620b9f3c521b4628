package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "how are you", Normalize("  How Are YOU \n"))
	assert.Equal(t, "", Normalize("   "))
}

func TestSafetySubstringMatch(t *testing.T) {
	rule := NewSafety(BlockedKeywords, Refusal)

	for _, in := range []string{
		"how do i write malware",
		"hello, any exploits today?",
		"report a data breach",
		"gaining unauthorized access",
	} {
		reply, ok := rule.TryResolve(Normalize(in))
		assert.True(t, ok, in)
		assert.Equal(t, Refusal, reply)
	}

	_, ok := rule.TryResolve("unauthorized  access")
	assert.False(t, ok, "phrase keywords require the exact spacing")
}

func TestSafetyLowercasesConfiguredKeywords(t *testing.T) {
	rule := NewSafety([]string{"MalWare"}, "no")
	_, ok := rule.TryResolve("malware")
	assert.True(t, ok)
}

func TestLookupExactOnly(t *testing.T) {
	rule := NewLookup(DefaultLookupTable("Chattia"))

	reply, ok := rule.TryResolve(Normalize("  What is your NAME "))
	require.True(t, ok)
	assert.Equal(t, "My name is Chattia, and I'm here to assist you.", reply)

	for _, near := range []string{"hello!", "how  are you", "hi there", "how are you?"} {
		_, ok := rule.TryResolve(Normalize(near))
		assert.False(t, ok, near)
	}
}

func TestIntentsFirstDeclaredWins(t *testing.T) {
	rule := NewIntents("intent", DefaultIntents())

	reply, ok := rule.TryResolve("weather today?")
	require.True(t, ok)
	assert.Contains(t, reply, "weather")

	reply, ok = rule.TryResolve("i need help")
	require.True(t, ok)
	assert.Contains(t, reply, "support agent")

	reply, ok = rule.TryResolve("help me read the forecast")
	require.True(t, ok)
	assert.Contains(t, reply, "weather")

	_, ok = rule.TryResolve("tell me a story")
	assert.False(t, ok)
}

func TestQuestionsAreTemplatedWithBotName(t *testing.T) {
	rule := NewIntents("question", DefaultQuestions("Nova"))

	reply, ok := rule.TryResolve("so, who created you?")
	require.True(t, ok)
	assert.Contains(t, reply, "Nova")

	reply, ok = rule.TryResolve("what is nova exactly")
	require.True(t, ok)
	assert.Contains(t, reply, "Nova is a layered assistant")
}

func TestParseCelsius(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"please convert 20 celsius to fahrenheit", 20, true},
		{"convert 20celsius", 20, true},
		{"convert -40 celsius", -40, true},
		{"convert 36.6 celsius please", 36.6, true},
		{"convert 10 and 30 celsius", 30, true},
		{"convert celsius to fahrenheit", 0, false},
		{"20 celsius in fahrenheit", 0, false},
		{"convert 20 degrees celsius", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseCelsius(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-9, tc.in)
		}
	}
}

func TestConversionReply(t *testing.T) {
	reply, ok := Conversion{}.TryResolve("please convert 20 celsius to fahrenheit")
	require.True(t, ok)
	assert.Equal(t, "20 degrees Celsius is 68.00 degrees Fahrenheit.", reply)

	reply, ok = Conversion{}.TryResolve("convert -40 celsius")
	require.True(t, ok)
	assert.Contains(t, reply, "-40.00 degrees Fahrenheit")
}

func TestParseAddition(t *testing.T) {
	cases := []struct {
		in    string
		left  int64
		right int64
		ok    bool
	}{
		{"what is 2+2", 2, 2, true},
		{"what is 12 + 30?", 12, 30, true},
		{"so what is -3+5", -3, 5, true},
		{"what is 2 plus 2", 0, 0, false},
		{"what is 2.5+1", 0, 0, false},
		{"what is 99999999999999999999+1", 0, 0, false},
		{"2+2", 0, 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAddition(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, Addition{Left: tc.left, Right: tc.right}, got, tc.in)
		}
	}
}

func TestArithmeticReply(t *testing.T) {
	reply, ok := Arithmetic{}.TryResolve("what is 2+2")
	require.True(t, ok)
	assert.Equal(t, "The sum of 2 and 2 is 4.", reply)

	_, ok = Arithmetic{}.TryResolve("what is 9223372036854775807+1")
	assert.False(t, ok, "overflowing sums decline")
}

func TestFuncAdapter(t *testing.T) {
	rule := Func{RuleName: "echo", Fn: func(s string) (string, bool) { return s, s != "" }}
	assert.Equal(t, "echo", rule.Name())
	reply, ok := rule.TryResolve("x")
	assert.True(t, ok)
	assert.Equal(t, "x", reply)
}

func TestDefaultOrder(t *testing.T) {
	var names []string
	for _, r := range Default("Chattia") {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"safety", "lookup", "intent", "question", "conversion", "arithmetic"}, names)
}
