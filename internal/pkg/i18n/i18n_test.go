package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalogue(t *testing.T) {
	assert.Equal(t, "buy", Translate("en", "VERB_SALE"))
	assert.Equal(t, "menerima", Translate("id", "VERB_DONATION"))

	// Unknown locales fall back to English, unknown keys to the key itself.
	assert.Equal(t, "accept", Translate("fr", "VERB_DONATION"))
	assert.Equal(t, "NON_EXISTENT_KEY", Translate("id", "NON_EXISTENT_KEY"))
}

func TestFormat(t *testing.T) {
	msg := Format("en", "REQUEST_RECEIVED", map[string]string{
		"requester": "bob",
		"verb":      "buy",
		"title":     "Dune",
	})
	assert.Equal(t, "bob has requested to buy your book: 'Dune'. Please review in your notifications.", msg)

	assert.Equal(t, "VERB_SALE_X", Format("en", "VERB_SALE_X", map[string]string{"x": "y"}))
}

func TestLoadTranslationsOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "xx"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "xx", catalogFile), []byte(
		"NOTIFICATIONS:\n  REQUEST_REJECTED: \"nope: {title}\"\n"), 0o644))

	require.NoError(t, LoadTranslations(dir))

	assert.Equal(t, "nope: Dune", Format("xx", "REQUEST_REJECTED", map[string]string{"title": "Dune"}))
	assert.Equal(t, "buy", Translate("xx", "VERB_SALE"))
}

func TestLoadTranslationsRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "zz"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zz", catalogFile), []byte("NOTIFICATIONS: [unclosed"), 0o644))

	assert.Error(t, LoadTranslations(dir))
}
