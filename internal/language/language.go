package language

import "strings"

type entry struct {
	code2   string // ISO 639-1
	code3   string // ISO 639-2/T
	alt3    string // ISO 639-2/B where it differs
	display string
	word    string
}

var languages = []entry{
	{"en", "eng", "", "English", "english"},
	{"es", "spa", "", "Spanish", "spanish"},
	{"fr", "fra", "fre", "French", "french"},
	{"de", "deu", "ger", "German", "german"},
	{"it", "ita", "", "Italian", "italian"},
	{"pt", "por", "", "Portuguese", "portuguese"},
	{"ja", "jpn", "", "Japanese", "japanese"},
	{"ko", "kor", "", "Korean", "korean"},
	{"zh", "zho", "chi", "Chinese", "chinese"},
	{"ru", "rus", "", "Russian", "russian"},
	{"ar", "ara", "", "Arabic", "arabic"},
	{"hi", "hin", "", "Hindi", "hindi"},
	{"nl", "nld", "dut", "Dutch", "dutch"},
	{"pl", "pol", "", "Polish", "polish"},
	{"sv", "swe", "", "Swedish", "swedish"},
	{"da", "dan", "", "Danish", "danish"},
	{"no", "nor", "", "Norwegian", "norwegian"},
	{"fi", "fin", "", "Finnish", "finnish"},
}

var index = func() map[string]*entry {
	m := make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		m[e.code2] = e
		m[e.code3] = e
		m[e.word] = e
		if e.alt3 != "" {
			m[e.alt3] = e
		}
	}
	return m
}()

func clean(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	// mpv reports IETF tags such as "en-US"; only the primary subtag matters
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

func lookup(code string) *entry {
	return index[clean(code)]
}

// ToISO2 converts a recognized code or English word to ISO 639-1. Unknown
// two-letter codes pass through; anything else yields "".
func ToISO2(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	if c := clean(code); len(c) == 2 {
		return c
	}
	return ""
}

// ToISO3 converts a recognized code to ISO 639-2. Unknown three-letter codes
// pass through; anything else yields "und".
func ToISO3(code string) string {
	if e := lookup(code); e != nil {
		return e.code3
	}
	if c := clean(code); len(c) == 3 {
		return c
	}
	return "und"
}

// DisplayName returns a readable name for a track language tag.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeList lower-cases, maps words and three-letter codes to ISO 639-1
// where known, and drops blanks and duplicates while keeping order.
func NormalizeList(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		value := clean(code)
		if value == "" {
			continue
		}
		if mapped := ToISO2(value); mapped != "" {
			value = mapped
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	return normalized
}

// TrackSelector expands a preference list into every spelling a container
// may carry, in preference order, joined for mpv's --alang and --slang.
// "en" becomes "en,eng" and "fr" becomes "fr,fra,fre".
func TrackSelector(codes []string) string {
	var out []string
	for _, code := range NormalizeList(codes) {
		e := lookup(code)
		if e == nil {
			out = append(out, code)
			continue
		}
		out = append(out, e.code2, e.code3)
		if e.alt3 != "" {
			out = append(out, e.alt3)
		}
	}
	return strings.Join(out, ",")
}
