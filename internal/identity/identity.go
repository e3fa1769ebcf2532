// Package identity normalizes user identities across messaging platforms.
//
// The same person can arrive as "U123ABC" from the Slack adapter and as
// "slack_U123ABC" from a replayed event. Normalization strips any known
// platform prefix and re-applies the canonical one so a user is never
// split across two conversation sessions.
package identity

import (
	"fmt"
	"strings"
)

// DefaultPlatform is assumed when an identity carries no prefix.
const DefaultPlatform = "slack"

var knownPrefixes = []string{"slack_", "discord_", "web_"}

// Normalize returns the canonical identity for a raw platform user ID.
// An empty raw ID is an error: dispatch cannot proceed without a user.
func Normalize(raw, platform string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("user ID cannot be empty")
	}
	if platform == "" {
		platform = DefaultPlatform
	}

	for _, prefix := range knownPrefixes {
		if strings.HasPrefix(raw, prefix) {
			raw = raw[len(prefix):]
			break
		}
	}

	return platform + "_" + raw, nil
}

// Platform extracts the platform prefix from a normalized identity.
func Platform(id string) string {
	i := strings.Index(id, "_")
	if i < 0 {
		return DefaultPlatform
	}
	return id[:i]
}
