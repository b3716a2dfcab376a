package classifier

import (
	"fmt"
	"strings"
)

var productTerms = []string{
	"Sky Follower Bridge",
	"sky bridge",
	"follower bridge",
	"bsky bridge",
}

var officialURLs = []string{
	"sky-follower-bridge.dev",
	"chromewebstore.google.com/detail/sky-follower-bridge/behhbpbpmailcnfbjagknjngnfdojpko",
	"https://addons.mozilla.org/en-US/firefox/addon/sky-follower-bridge",
}

func quotedList(items []string) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "    - %q\n", it)
	}
	return b.String()
}

func analysisPrompt(text string, spamDomains []string) string {
	targetURLs := append(append([]string{}, officialURLs...), spamDomains...)
	spam := "(none configured)"
	if len(spamDomains) > 0 {
		spam = strings.Join(spamDomains, ", ")
	}
	return fmt.Sprintf(`Please evaluate the provided text and classify it based on the following criteria:

1. **Target Identification**:
  - Determine if the text explicitly or implicitly refers to any of the following terms:
%s  - Exclude references that:
    - Describe generic physical or metaphorical bridges.
    - Relate to cryptocurrency-related projects, tools, or alliances.
  - If the text contains any of the following URLs, "isTarget" must always be true:
%s  - If any of the above criteria are met, set "isTarget" to true; otherwise, set it to false.

2. **Issue Report Detection**:
  - Check if the text indicates a problem, error, or feedback specific to the mentioned tools or terms.
  - Examples include bug reports, feature requests, or usage difficulties.
  - If it is an issue report, set "isIssue" to true; otherwise, set it to false.

3. **Spam URL Detection**:
  - Verify if the text contains a URL on any of these domains: %s
  - If such a URL is present, set "hasSpamUrl" to true; otherwise, set it to false.

4. **Response Formatting**:
  - Respond with only this JSON object:
    {
      "isTarget": true/false,
      "isIssue": true/false,
      "hasSpamUrl": true/false
    }

**Text to analyze**:
"""
%s
"""

**Additional Notes**:
- Be thorough in differentiating between valid mentions and excluded contexts to reduce false positives.
- The URLs listed above override other criteria for "isTarget".`,
		quotedList(productTerms), quotedList(targetURLs), spam, text)
}

func translationPrompt(text, language string) string {
	return fmt.Sprintf(`Please translate the following text to %s.
Do not translate the terms Sky Follower Bridge, Sky Bridge, and Bsky Bridge; keep them in English.
Provide the response in JSON format with the key "translatedText".

Text: %s`, language, text)
}
