package policy_test

import (
	"testing"

	"github.com/daniu006/qrgate/internal/qrgate/policy"
)

func TestIsRejected_WifiPrefix(t *testing.T) {
	cases := []string{
		"WIFI:guest-net",
		"wifi:T:WPA;S:home;P:secret;;",
		"  WiFi:anything",
		"\tWIFI:S:net;;",
	}
	for _, payload := range cases {
		if !policy.IsRejected(payload) {
			t.Errorf("IsRejected(%q) = false, want true", payload)
		}
	}
}

func TestIsRejected_ImageExtensions(t *testing.T) {
	cases := []string{
		"badge_photo.png",
		"https://example.com/pic.JPG?size=2",
		"archive.jpeg.backup", // substring match anywhere, not suffix-only
		"x.GIF",
		"scan.bmp",
		"sticker.webp",
	}
	for _, payload := range cases {
		if !policy.IsRejected(payload) {
			t.Errorf("IsRejected(%q) = false, want true", payload)
		}
	}
}

func TestIsRejected_PassesThrough(t *testing.T) {
	cases := []string{
		"EMP-001",
		"a7f3c9e1",
		"WIFIMAX-ticket", // prefix requires the colon
		"jpgless",        // extension requires the dot
		"",
	}
	for _, payload := range cases {
		if policy.IsRejected(payload) {
			t.Errorf("IsRejected(%q) = true, want false", payload)
		}
	}
}
