package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/sky-follower-bridge/bridgewatch/watch"
)

type rawClassification struct {
	IsTarget   *bool `json:"isTarget"`
	IsIssue    *bool `json:"isIssue"`
	HasSpamURL *bool `json:"hasSpamUrl"`
}

// parseClassification requires all three fields to be present and boolean.
// Missing fields are never defaulted.
func parseClassification(raw string) (*watch.Classification, error) {
	var rc rawClassification
	if err := json.Unmarshal([]byte(stripFence(raw)), &rc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedClassification, err)
	}
	switch {
	case rc.IsTarget == nil:
		return nil, fmt.Errorf("%w: missing isTarget", ErrMalformedClassification)
	case rc.IsIssue == nil:
		return nil, fmt.Errorf("%w: missing isIssue", ErrMalformedClassification)
	case rc.HasSpamURL == nil:
		return nil, fmt.Errorf("%w: missing hasSpamUrl", ErrMalformedClassification)
	}
	return &watch.Classification{
		IsTarget:   *rc.IsTarget,
		IsIssue:    *rc.IsIssue,
		HasSpamURL: *rc.HasSpamURL,
	}, nil
}

func parseTranslation(raw string) (*watch.Translation, error) {
	var out struct {
		TranslatedText *string `json:"translatedText"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTranslation, err)
	}
	if out.TranslatedText == nil {
		return nil, fmt.Errorf("%w: missing translatedText", ErrMalformedTranslation)
	}
	return &watch.Translation{TranslatedText: *out.TranslatedText}, nil
}
