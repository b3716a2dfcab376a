package watch

import (
	"encoding/json"
	"fmt"
)

// Reference describes the corrective reply posted under spam posts: the reply
// text, the canonical post it quotes, and the canonical link card.
type Reference struct {
	ReplyText       string `yaml:"reply_text"`
	QuoteURI        string `yaml:"quote_uri"`
	QuoteCID        string `yaml:"quote_cid"`
	LinkURL         string `yaml:"link_url"`
	LinkTitle       string `yaml:"link_title"`
	LinkDescription string `yaml:"link_description"`
	ThumbURL        string `yaml:"thumb_url"`
}

var DefaultReference = Reference{
	ReplyText:       "Thank you for mentioning Sky Follower Bridge. However, if you are referring to the browser extension Sky Follower Bridge, the site you have shared is incorrect. It is a spam site impersonating Sky Follower Bridge. The real official site is here: https://www.sky-follower-bridge.dev",
	QuoteURI:        "at://did:plc:hcp53er6pefwijpdceo5x4bp/app.bsky.feed.post/3lcicsmfskc2b",
	QuoteCID:        "bafyreihxvzoheoi2xg5gatwjmlqeblwfkfqv24im4h5jgdsddwhhiggyoe",
	LinkURL:         "https://www.sky-follower-bridge.dev",
	LinkTitle:       "Sky Follower Bridge",
	LinkDescription: "Sky Follower Bridge is a browser extension that helps you manage your Bluesky followers.",
	ThumbURL:        "https://www.sky-follower-bridge.dev/images/og-image.png",
}

var DefaultQueries = []string{
	"sky follower bridge",
	"'skybridge'",
	"'skyfollower'",
	"'bsky bridge'",
	"'follower bridge'",
	"'bluesky bridge'",
	"'sky-follower-bridge'",
	"'skyfollowerbridge.com'",
	"'skyfollowerbridge'",
}

func spamMessage(postURL string) Message {
	return Message{
		Text:    fmt.Sprintf("🚨 Post contains a spam URL. Corrective reply sent, please check.\n%s", postURL),
		Urgency: UrgencyHigh,
	}
}

func spamAlreadyRepliedMessage(postURL string) Message {
	return Message{
		Text:    fmt.Sprintf("🚨 Post contains a spam URL. A reply from this account already exists, no new reply sent.\n%s", postURL),
		Urgency: UrgencyHigh,
	}
}

func issueMessage(postURL string) Message {
	return Message{
		Text:    fmt.Sprintf("🚨 Post mentions a problem, please check.\n%s", postURL),
		Urgency: UrgencyHigh,
	}
}

func acknowledgedMessage(postURL string) Message {
	return Message{
		Text:    fmt.Sprintf("👍 Liked post.\n%s", postURL),
		Urgency: UrgencyLow,
	}
}

func translationMessage(language, translated string) Message {
	return Message{
		Text:      fmt.Sprintf("Translation (%s):", language),
		CodeBlock: translated,
		Urgency:   UrgencyLow,
	}
}

func errorMessage(err error, post *Post) Message {
	snapshot, merr := json.MarshalIndent(post, "", "  ")
	if merr != nil {
		snapshot = []byte(fmt.Sprintf("%+v", *post))
	}
	return Message{
		Text:      fmt.Sprintf("⚠️ Error while processing post: %s", err),
		CodeBlock: string(snapshot),
		Urgency:   UrgencyHigh,
	}
}

func summaryMessage(s *RunSummary) Message {
	return Message{
		Text: fmt.Sprintf("Run complete: %d candidates, %d liked (%d spam, %d issue, %d acknowledged), %d failed",
			s.Candidates, s.Liked(), s.Counts[OutcomeLikedSpam], s.Counts[OutcomeLikedIssue], s.Counts[OutcomeLikedAcknowledged], s.Counts[OutcomeFailed]),
		Urgency: UrgencyLow,
	}
}
