package deployform

import (
	"strings"

	"github.com/raglabs/pipeline-dashboard/internal/models"
)

// unescapeValue processes escape sequences in a single pass so that \\n
// becomes a literal backslash-n, not a newline.
func unescapeValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				result.WriteByte('\n')
				i += 2
			case 't':
				result.WriteByte('\t')
				i += 2
			case 'r':
				result.WriteByte('\r')
				i += 2
			case '"':
				result.WriteByte('"')
				i += 2
			case '\\':
				result.WriteByte('\\')
				i += 2
			default:
				// Unknown escape sequence, keep the backslash
				result.WriteByte(s[i])
				i++
			}
		} else {
			result.WriteByte(s[i])
			i++
		}
	}
	return result.String()
}

// ParseEnvFile parses .env file content pasted into the deploy form and
// returns the secret pairs in first-seen key order. A repeated key updates the
// earlier pair in place, matching how shells resolve later assignments.
func ParseEnvFile(content string) []models.SecretPair {
	var pairs []models.SecretPair
	index := make(map[string]int)

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		// Skip empty lines and comments
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Handle export prefix
		if strings.HasPrefix(trimmed, "export ") {
			trimmed = strings.TrimSpace(trimmed[7:])
		}

		eqIndex := strings.Index(trimmed, "=")
		if eqIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(trimmed[:eqIndex])
		value := strings.TrimSpace(trimmed[eqIndex+1:])

		// Handle quoted values. A lone quote character is not a quoted value:
		// prefix and suffix both match on a length-1 string.
		if len(value) >= 2 &&
			((strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
				(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'"))) {
			value = value[1 : len(value)-1]
			// Escape sequences only apply inside quotes
			if strings.Contains(value, "\\") {
				value = unescapeValue(value)
			}
		}

		if at, seen := index[key]; seen {
			pairs[at].Value = value
			continue
		}
		index[key] = len(pairs)
		pairs = append(pairs, models.SecretPair{Key: key, Value: value})
	}

	return pairs
}

// SerializeEnvFile renders secret pairs back to .env file format, quoting
// values that contain characters the parser treats specially.
func SerializeEnvFile(pairs []models.SecretPair) string {
	var lines []string
	for _, pair := range pairs {
		needsQuotes := strings.ContainsAny(pair.Value, " \t\n\r\"'#=")
		if needsQuotes {
			escaped := pair.Value
			escaped = strings.ReplaceAll(escaped, "\\", "\\\\")
			escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
			escaped = strings.ReplaceAll(escaped, "\n", "\\n")
			escaped = strings.ReplaceAll(escaped, "\t", "\\t")
			escaped = strings.ReplaceAll(escaped, "\r", "\\r")
			lines = append(lines, pair.Key+"=\""+escaped+"\"")
		} else {
			lines = append(lines, pair.Key+"="+pair.Value)
		}
	}
	return strings.Join(lines, "\n")
}
