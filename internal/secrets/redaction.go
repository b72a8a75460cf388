package secrets

import "strings"

var defaultRedactionPatterns = []string{
	"KEY", "SECRET", "TOKEN", "PASSWORD", "CREDENTIAL", "AUTH",
}

// Redact masks val if name matches any of patterns (case-insensitive
// substring match), otherwise returns val unchanged.
func Redact(name, val string, patterns []string) string {
	upper := strings.ToUpper(name)
	for _, p := range patterns {
		if strings.Contains(upper, strings.ToUpper(p)) {
			if len(val) <= 4 {
				return "****"
			}
			return val[:2] + "****" + val[len(val)-2:]
		}
	}
	return val
}
