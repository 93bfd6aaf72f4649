// Package device derives display labels and coarse fingerprints from User-Agent strings.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns a label such as "Chrome on macOS" for session listings.
func ParseUserAgent(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return unknownDevice
	}
	parsed := useragent.New(ua)
	browser, _ := parsed.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := osLabel(parsed)
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}

func osLabel(ua *useragent.UserAgent) string {
	info := ua.OSInfo()
	switch {
	case strings.Contains(ua.Platform(), "iPhone"):
		return "iPhone"
	case strings.Contains(ua.Platform(), "iPad"):
		return "iPad"
	case info.Name == "Mac OS X":
		return "macOS"
	case info.Name != "":
		return info.Name
	default:
		return ua.OS()
	}
}

// Service computes device fingerprints when enabled.
type Service struct {
	enabled bool
}

func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

// ComputeFingerprint hashes browser name, browser major version, OS and platform.
// Minor version bumps keep the fingerprint stable.
func (s *Service) ComputeFingerprint(ua string) string {
	if !s.enabled || ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	name, version := parsed.Browser()
	major, _, _ := strings.Cut(version, ".")
	sum := sha256.Sum256([]byte(strings.Join([]string{name, major, parsed.OS(), parsed.Platform()}, "|")))
	return hex.EncodeToString(sum[:])
}
