package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid simple expression",
			expr:      `chat_type == "supergroup"`,
			wantError: false,
		},
		{
			name:      "valid numeric comparison",
			expr:      `chat_id < 0`,
			wantError: false,
		},
		{
			name:      "invalid expression",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `undefinedVar == "test"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRule(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid bool expression",
			expr:      `kind == "text"`,
			wantError: false,
		},
		{
			name:      "non-bool expression",
			expr:      `content`,
			wantError: true,
		},
		{
			name:      "valid contains",
			expr:      `content.contains("http")`,
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateRule(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateRule(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	facts := MessageFacts{
		ChatID:   -1001,
		ChatType: "supergroup",
		UserID:   42,
		Username: "spammer",
		Content:  "join t.me/cheap for free coins",
		Kind:     "text",
	}

	tests := []struct {
		name    string
		expr    string
		want    bool
		wantErr bool
	}{
		{name: "empty rule matches", expr: "", want: true},
		{name: "kind match", expr: `kind == "text"`, want: true},
		{name: "kind mismatch", expr: `kind == "sticker"`, want: false},
		{name: "content contains", expr: `content.contains("t.me/")`, want: true},
		{name: "length threshold", expr: `size(content) > 100`, want: false},
		{name: "combined", expr: `chat_id < 0 && !is_admin && username.startsWith("spam")`, want: true},
		{name: "non-bool rejected", expr: `user_id`, wantErr: true},
		{name: "bad syntax", expr: `kind ==`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateRule(context.Background(), tt.expr, facts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateRule_StringExtensions(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		content string
		want    bool
	}{
		{"Free AIRDROP today", true},
		{"claim your airdrop", true},
		{"nothing to see here", false},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			got, err := eval.EvaluateRule(context.Background(), ScanRuleExamples["keyword"], MessageFacts{Content: tt.content, Kind: "text"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	ok, err := eval.EvaluateRule(context.Background(), `content.trim().upperAscii() == "HI"`, MessageFacts{Content: "  hi "})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRule_CachesPrograms(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ok, err := eval.EvaluateRule(context.Background(), `!is_bot`, MessageFacts{})
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Len(t, eval.programs, 1)
}

func TestScanRuleExamples(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	facts := MessageFacts{
		ChatID:   -1001234567890,
		ChatType: "supergroup",
		UserID:   333,
		Content:  "Free AIRDROP at https://example.com",
		Kind:     "text",
	}
	for name, expr := range ScanRuleExamples {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, eval.ValidateRule(expr))
			_, err := eval.EvaluateRule(context.Background(), expr, facts)
			assert.NoError(t, err)
		})
	}
}
