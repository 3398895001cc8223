package policy

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^([a-zA-Z0-9._%+\-])[a-zA-Z0-9._%+\-]*@([a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\-() ]{5,}[0-9]$`)
)

// MaskSender hides most of a caller identity before it reaches a log line.
// Phone numbers keep their last four digits and emails keep their first
// letter and domain. Other handles pass through unchanged.
func MaskSender(sender string) string {
	s := strings.TrimSpace(sender)
	if m := emailPattern.FindStringSubmatch(s); m != nil {
		return m[1] + "***@" + m[2]
	}
	if phonePattern.MatchString(s) {
		digits := make([]byte, 0, len(s))
		for i := 0; i < len(s); i++ {
			if s[i] >= '0' && s[i] <= '9' {
				digits = append(digits, s[i])
			}
		}
		if len(digits) <= 4 {
			return s
		}
		prefix := ""
		if strings.HasPrefix(s, "+") {
			prefix = "+"
		}
		return prefix + strings.Repeat("*", len(digits)-4) + string(digits[len(digits)-4:])
	}
	return s
}

// RedactURL drops credentials and query parameters so a configured endpoint
// can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[INVALID_URL]"
	}
	if u.User != nil {
		u.User = url.User("REDACTED")
	}
	if u.RawQuery != "" {
		u.RawQuery = "REDACTED"
	}
	return u.String()
}
