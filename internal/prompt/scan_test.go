package prompt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionLine(t *testing.T) {
	tests := []struct {
		line   string
		ok     bool
		number int
		label  string
		cursor bool
	}{
		{"1. Yes", true, 1, "Yes", false},
		{"❯ 2. No", true, 2, "No", true},
		{"  ➤  12. Twelve", true, 12, "Twelve", true},
		{"│ ▸ 3. Framed │", true, 3, "Framed", true},
		{"0. Zero", false, 0, "", false},
		{"01. Leading zero", false, 0, "", false},
		{"1234. Too long", false, 0, "", false},
		{"1.5 version", false, 0, "", false},
		{"1.", false, 0, "", false},
		{"1) Paren", false, 0, "", false},
		{"v1. Prefixed", false, 0, "", false},
		{"", false, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ol, ok := parseOptionLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.number, ol.number)
			assert.Equal(t, tt.label, ol.label)
			assert.Equal(t, tt.cursor, ol.cursor)
		})
	}
}

func TestClassifyQuestion(t *testing.T) {
	tests := []struct {
		line string
		want questionKind
	}{
		{"Do you want to proceed?", questionMark},
		{"続けますか？", questionMark},
		{"Which one? Pick carefully", wrappedQuestion},
		{"Select an option:", keywordQuestion},
		{"Choose wisely：", keywordQuestion},
		{"Steps:", notQuestion},
		{"I have selected the following:", notQuestion},
		{"Here are the items to choose:", notQuestion},
		{"? for shortcuts", notQuestion},
		{"Check https://example.com/?q=1 for details", notQuestion},
		{"???", notQuestion},
		{"", notQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want.String(), classifyQuestion(tt.line, defaultDeny).String())
		})
	}
}

func TestIsSeparator(t *testing.T) {
	assert.True(t, isSeparator("-----"))
	assert.True(t, isSeparator("── ── ──"))
	assert.False(t, isSeparator("--"))
	assert.False(t, isSeparator("-- done --"))
}

func TestNeedsTextInput(t *testing.T) {
	assert.True(t, needsTextInput("Type something."))
	assert.True(t, needsTextInput("Other"))
	assert.True(t, needsTextInput("No, and tell Claude what to do differently"))
	assert.False(t, needsTextInput("Use the other driver"))
	assert.False(t, needsTextInput("Yes"))
}

func TestResultJSON(t *testing.T) {
	r := Detect("Which one?\n❯ 1. Yes\n  2. No", nil)
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"isPrompt":true`)
	assert.Contains(t, string(b), `"type":"multiple_choice"`)
	assert.Contains(t, string(b), `"isDefault":true`)

	var back Result
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r, back)

	_, err = UnmarshalData([]byte(`{"type":"free_text"}`))
	assert.Error(t, err)
}
