package webext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithExtension(t *testing.T) {
	t.Run("chromium", func(t *testing.T) {
		bt, err := WithExtension(newFakeBrowserType(t, BrowserChromium), []string{"/ext/a"})
		require.NoError(t, err)
		assert.IsType(t, &Chromium{}, bt)
		assert.Equal(t, BrowserChromium, bt.Name())
	})

	t.Run("firefox", func(t *testing.T) {
		bt, err := WithExtension(newFakeBrowserType(t, BrowserFirefox), []string{"/ext/a"}, WithPort(6001))
		require.NoError(t, err)
		assert.IsType(t, &Firefox{}, bt)
		assert.Equal(t, BrowserFirefox, bt.Name())
	})

	t.Run("webkit is unsupported", func(t *testing.T) {
		bt, err := WithExtension(newFakeBrowserType(t, "webkit"), []string{"/ext/a"})
		require.Error(t, err)
		assert.Nil(t, bt)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.ErrorIs(t, err, ErrUnsupportedBrowser)
		assert.NotErrorIs(t, err, ErrUnexpectedBrowser)
		assert.Contains(t, err.Error(), "webkit")
	})
}
