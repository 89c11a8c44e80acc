package utils

import (
	"strings"
	"testing"

	"nurtureflow/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	config.AppConfig.EncryptionKey = "test-encryption-key"
}

func TestTrackingTokenRoundTrip(t *testing.T) {
	token := TrackingToken("msg-123")
	require.Len(t, token, 20)

	assert.True(t, VerifyTrackingToken("msg-123", token))
	assert.False(t, VerifyTrackingToken("msg-456", token))
	assert.False(t, VerifyTrackingToken("msg-123", "forged-token-value00"))
}

func TestTrackingTokenIsDeterministic(t *testing.T) {
	assert.Equal(t, TrackingToken("msg-123"), TrackingToken("msg-123"))
	assert.NotEqual(t, TrackingToken("msg-123"), TrackingToken("msg-124"))
}

func TestInjectTrackingAddsPixelAndRewritesLinks(t *testing.T) {
	html := `<p>Hello <a href="https://example.com/case-study">read this</a></p>`

	out := InjectTracking(html, "http://localhost:5000", "msg-123")

	assert.Contains(t, out, "/track/open/msg-123/")
	assert.Contains(t, out, "/track/click/msg-123/")
	assert.Contains(t, out, "url=https%3A%2F%2Fexample.com%2Fcase-study")
	assert.NotContains(t, out, `href="https://example.com/case-study"`)

	// Pixel goes at the end of the body
	assert.True(t, strings.HasSuffix(out, `style="display:none">`))
}

func TestGenerateClickTrackURLEscapesTarget(t *testing.T) {
	u := GenerateClickTrackURL("http://localhost:5000", "msg-1", "https://example.com/a?b=c&d=e")
	assert.Contains(t, u, "url=https%3A%2F%2Fexample.com%2Fa%3Fb%3Dc%26d%3De")
}
