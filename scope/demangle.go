package scope

import "strings"

// Demangle extracts the :: path from a legacy mangled symbol such as
// _ZN4demo4main17h0123456789abcdefE. The trailing hash segment is dropped.
// Names that are not mangled are returned unchanged.
func Demangle(name string) string {
	if !strings.HasPrefix(name, "_ZN") {
		return name
	}

	// Format: _ZN<len><name><len><name>...E
	s := name[3:]
	var parts []string

	for len(s) > 0 && s[0] != 'E' {
		lenEnd := 0
		for lenEnd < len(s) && s[lenEnd] >= '0' && s[lenEnd] <= '9' {
			lenEnd++
		}
		if lenEnd == 0 {
			break
		}

		length := 0
		for i := 0; i < lenEnd; i++ {
			length = length*10 + int(s[i]-'0')
			if length > len(s)-lenEnd {
				return name
			}
		}
		s = s[lenEnd:]

		part := s[:length]
		s = s[length:]

		if isHashSegment(part) {
			continue
		}
		parts = append(parts, unescapeSegment(part))
	}

	if len(parts) == 0 {
		return name
	}
	return strings.Join(parts, "::")
}

// isHashSegment matches the 17 character h<16 hex> disambiguator.
func isHashSegment(part string) bool {
	if len(part) != 17 || part[0] != 'h' {
		return false
	}
	for i := 1; i < 17; i++ {
		c := part[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

var segmentEscapes = strings.NewReplacer(
	"$LT$", "<",
	"$GT$", ">",
	"$RF$", "&",
	"$BP$", "*",
	"$LP$", "(",
	"$RP$", ")",
	"$C$", ",",
	"$u20$", " ",
	"$u7b$", "{",
	"$u7d$", "}",
	"$u5b$", "[",
	"$u5d$", "]",
	"$u3b$", ";",
	"$u23$", "#",
	"..", "::",
)

func unescapeSegment(part string) string {
	if strings.HasPrefix(part, "_$") {
		part = part[1:]
	}
	if !strings.ContainsAny(part, "$.") {
		return part
	}
	return segmentEscapes.Replace(part)
}
