package classifier

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
	"golang.org/x/text/unicode/norm"
)

var urlRegex = regexp.MustCompile(`(?:(?:https?|ftp):\/\/)?[\w/\-?=%.]+\.[\w/\-&?=%.]*[\w/\-&?=%]+`)

// extractHosts returns the lower-case host of every URL-like string in text.
// Full-width characters are folded first (NFKC), so "ｅｘａｍｐｌｅ．ｃｏｍ" is
// found as "example.com".
func extractHosts(logger *slog.Logger, text string) []string {
	folded := norm.NFKC.String(text)
	var hosts []string
	for _, raw := range urlRegex.FindAllString(folded, -1) {
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		clean, err := purell.NormalizeURLString(raw, purell.FlagsUsuallySafeGreedy|purell.FlagRemoveWWW|purell.FlagRemoveFragment)
		if err != nil {
			logger.Debug("skipping unparsable url", "url", raw, "err", err)
			continue
		}
		u, err := url.Parse(clean)
		if err != nil || u.Hostname() == "" {
			continue
		}
		hosts = append(hosts, strings.TrimSuffix(strings.ToLower(u.Hostname()), "."))
	}
	return hosts
}

// knownSpamDomain returns the first configured domain which appears as a URL
// host (or parent of one) in text, or the empty string.
func knownSpamDomain(logger *slog.Logger, text string, domains []string) string {
	if len(domains) == 0 {
		return ""
	}
	for _, host := range extractHosts(logger, text) {
		for _, d := range domains {
			d = strings.ToLower(d)
			if host == d || strings.HasSuffix(host, "."+d) {
				return d
			}
		}
	}
	return ""
}
