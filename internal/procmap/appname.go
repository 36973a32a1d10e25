package procmap

import (
	"regexp"
	"strings"

	"netscope/internal/models"
)

// nameMappings converts raw process names to friendly application
// names. Tried in order: an exact match wins over a case-insensitive
// substring match.
var nameMappings = []struct {
	process string
	app     string
}{
	{"Google Chrome", "Chrome"},
	{"Google Chrome Helper", "Chrome"},
	{"Safari", "Safari"},
	{"Safari Networking", "Safari"},
	{"firefox", "Firefox"},
	{"Spotify", "Spotify"},
	{"Spotify Helper", "Spotify"},
	{"Code", "VS Code"},
	{"Code Helper", "VS Code"},
	{"Python", "Python"},
	{"python3", "Python"},
	{"node", "Node.js"},
	{"Slack", "Slack"},
	{"Slack Helper", "Slack"},
	{"Discord", "Discord"},
	{"Discord Helper", "Discord"},
	{"Zoom", "Zoom"},
	{"zoom.us", "Zoom"},
	{"Microsoft Teams", "Teams"},
	{"Dropbox", "Dropbox"},
	{"OneDrive", "OneDrive"},
}

var processSuffix = regexp.MustCompile(`\s+(Helper|Renderer|GPU|Network)`)

// AppName converts a raw process name to a friendly application name.
// Unmapped names lose decorations like "Helper" but otherwise pass
// through. An empty name maps to models.UnknownApp.
func AppName(processName string) string {
	if processName == "" {
		return models.UnknownApp
	}
	for _, m := range nameMappings {
		if m.process == processName {
			return m.app
		}
	}
	lower := strings.ToLower(processName)
	for _, m := range nameMappings {
		if strings.Contains(lower, strings.ToLower(m.process)) {
			return m.app
		}
	}
	if cleaned := strings.TrimSpace(processSuffix.ReplaceAllString(processName, "")); cleaned != "" {
		return cleaned
	}
	return processName
}
