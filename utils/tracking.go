package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"nurtureflow/config"
)

// TrackingToken derives a verifiable token for a message so the public
// tracking endpoints cannot be spammed with guessed IDs
func TrackingToken(messageID string) string {
	hash := sha256.Sum256([]byte(messageID + config.AppConfig.EncryptionKey))
	return base64.URLEncoding.EncodeToString(hash[:])[:20]
}

// VerifyTrackingToken checks a token presented on a tracking endpoint
func VerifyTrackingToken(messageID, token string) bool {
	expected := TrackingToken(messageID)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}

// GenerateTrackingPixelURL generates a tracking pixel URL for email opens
func GenerateTrackingPixelURL(baseURL, messageID string) string {
	return fmt.Sprintf("%s/track/open/%s/%s", baseURL, messageID, TrackingToken(messageID))
}

// GenerateClickTrackURL generates a tracked URL for links
func GenerateClickTrackURL(baseURL, messageID, originalURL string) string {
	encodedURL := url.QueryEscape(originalURL)
	return fmt.Sprintf("%s/track/click/%s/%s?url=%s", baseURL, messageID, TrackingToken(messageID), encodedURL)
}

// InjectTracking injects open and click tracking into email content
func InjectTracking(htmlContent, baseURL, messageID string) string {
	pixelURL := GenerateTrackingPixelURL(baseURL, messageID)
	trackingPixel := fmt.Sprintf(`<img src="%s" alt="" width="1" height="1" style="display:none">`, pixelURL)

	modifiedHTML := injectClickTracking(htmlContent, baseURL, messageID)

	return modifiedHTML + trackingPixel
}

func injectClickTracking(html, baseURL, messageID string) string {
	// Simplified rewrite; good enough for the templates we generate
	startTag := "<a href=\""
	endTag := "\""
	offset := 0

	for {
		startIdx := strings.Index(html[offset:], startTag)
		if startIdx == -1 {
			break
		}
		startIdx += offset + len(startTag)

		endIdx := strings.Index(html[startIdx:], endTag)
		if endIdx == -1 {
			break
		}
		endIdx += startIdx

		originalURL := html[startIdx:endIdx]
		trackedURL := GenerateClickTrackURL(baseURL, messageID, originalURL)

		html = html[:startIdx] + trackedURL + html[endIdx:]
		offset = startIdx + len(trackedURL)
	}

	return html
}
