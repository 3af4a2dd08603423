package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stregsystem/internal/core/apperror"
)

func quickBuyParts(t *testing.T, err error) (string, string) {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperror.CodeQuickBuy, appErr.Code)
	return appErr.Details["parsed"].(string), appErr.Details["failed"].(string)
}

func TestParseUsernameOnly(t *testing.T) {
	username, ids, err := Parse("jokke")
	require.NoError(t, err)
	assert.Equal(t, "jokke", username)
	assert.Empty(t, ids)
}

func TestParseSingleItem(t *testing.T) {
	username, ids, err := Parse("jokke 14")
	require.NoError(t, err)
	assert.Equal(t, "jokke", username)
	assert.Equal(t, []int64{14}, ids)
}

func TestParseCountExpansion(t *testing.T) {
	_, ids, err := Parse("jokke 14:3 7")
	require.NoError(t, err)
	assert.Equal(t, []int64{14, 14, 14, 7}, ids)
}

func TestParseTabsAndRuns(t *testing.T) {
	username, ids, err := Parse("jokke\t14  7")
	require.NoError(t, err)
	assert.Equal(t, "jokke", username)
	assert.Equal(t, []int64{14, 7}, ids)
}

func TestParseLeadingWhitespace(t *testing.T) {
	username, _, err := Parse("  jokke 14")
	require.NoError(t, err)
	assert.Equal(t, "jokke", username)
}

func TestParseEmpty(t *testing.T) {
	_, _, err := Parse("")
	require.Error(t, err)
	parsed, failed := quickBuyParts(t, err)
	assert.Equal(t, "", parsed)
	assert.Equal(t, "", failed)
}

func TestParseWhitespaceOnly(t *testing.T) {
	_, _, err := Parse("   ")
	require.Error(t, err)
	parsed, failed := quickBuyParts(t, err)
	assert.Equal(t, "", parsed)
	assert.Equal(t, "   ", failed)
}

func TestParseBadItem(t *testing.T) {
	_, _, err := Parse("jokke 14 abe")
	require.Error(t, err)
	parsed, failed := quickBuyParts(t, err)
	assert.Equal(t, "jokke 14 ", parsed)
	assert.Equal(t, "abe", failed)
}

func TestParseBadCount(t *testing.T) {
	_, _, err := Parse("jokke 14:x")
	require.Error(t, err)
	parsed, failed := quickBuyParts(t, err)
	assert.Equal(t, "jokke ", parsed)
	assert.Equal(t, "14:x", failed)
}

func TestParseTrailingWhitespace(t *testing.T) {
	_, _, err := Parse("jokke 14 ")
	require.Error(t, err)
	parsed, failed := quickBuyParts(t, err)
	assert.Equal(t, "jokke 14", parsed)
	assert.Equal(t, " ", failed)
}

func TestPreProcessAlias(t *testing.T) {
	resolve := func(name string) (int64, bool) {
		if name == "øl" {
			return 14, true
		}
		return 0, false
	}
	assert.Equal(t, "jokke 14", PreProcess("jokke øl", resolve))
	assert.Equal(t, "jokke 14:3", PreProcess("jokke øl:3", resolve))
	assert.Equal(t, "jokke kaffe", PreProcess("jokke kaffe", resolve))
	// username token is never rewritten
	assert.Equal(t, "øl 14", PreProcess("øl øl", resolve))
}

func TestPreProcessCaseInsensitive(t *testing.T) {
	resolve := func(name string) (int64, bool) {
		if name == "øl" {
			return 14, true
		}
		return 0, false
	}
	assert.Equal(t, "jokke 14", PreProcess("jokke ØL", resolve))
}
