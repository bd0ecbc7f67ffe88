package sparql

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/cloo-solutions/mathbot/internal/vocab"
)

// Result variables of the label query.
const (
	VarLabel   = "targetLabel"
	VarSubject = "targetSubject"
	VarChapter = "targetChapter"
	VarComment = "targetComment"
)

// Limits bounds the label alternation built from model-generated terms.
type Limits struct {
	MaxTerms     int
	MaxTermRunes int
	MaxPattern   int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxTerms: 8, MaxTermRunes: 64, MaxPattern: 512}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxTerms <= 0 {
		l.MaxTerms = d.MaxTerms
	}
	if l.MaxTermRunes <= 0 {
		l.MaxTermRunes = d.MaxTermRunes
	}
	if l.MaxPattern <= 0 {
		l.MaxPattern = d.MaxPattern
	}
	return l
}

// SanitizeTerms normalizes label terms: NFC, trimmed, non-empty, deduplicated
// case-insensitively, each at most MaxTermRunes long, at most MaxTerms of them, and
// together no longer than MaxPattern once escaped and joined.
func SanitizeTerms(terms []string, limits Limits) []string {
	limits = limits.withDefaults()

	seen := make(map[string]bool)
	var out []string
	size := 0
	for _, raw := range terms {
		term := norm.NFC.String(strings.Join(strings.Fields(unwrapRegex(raw)), " "))
		if term == "" || utf8.RuneCountInString(term) > limits.MaxTermRunes {
			continue
		}
		key := strings.ToLower(term)
		if seen[key] {
			continue
		}

		cost := len(regexp.QuoteMeta(term))
		if len(out) > 0 {
			cost++
		}
		if size+cost > limits.MaxPattern {
			break
		}
		seen[key] = true
		size += cost
		out = append(out, term)
		if len(out) == limits.MaxTerms {
			break
		}
	}
	return out
}

// unwrapRegex strips anchors and wildcards a model may put around a literal term.
func unwrapRegex(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "^")
	s = strings.TrimSuffix(s, "$")
	s = strings.TrimPrefix(s, ".*")
	s = strings.TrimSuffix(s, ".*")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && !strings.ContainsAny(s[1:len(s)-1], "()") {
		s = s[1 : len(s)-1]
	}
	return s
}

// Pattern joins escaped terms into a regex alternation.
func Pattern(terms []string) string {
	escaped := make([]string, len(terms))
	for i, t := range terms {
		escaped[i] = regexp.QuoteMeta(t)
	}
	return strings.Join(escaped, "|")
}

// LabelQuery renders the canonical concept lookup: concepts whose label matches any
// term case-insensitively, with optional comment and optional hierarchy ancestors.
// A concept without a section, chapter or subject still yields a row.
func LabelQuery(ns vocab.Namespace, terms []string) string {
	if len(terms) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("PREFIX : <" + string(ns) + ">\n")
	b.WriteString("PREFIX rdfs: <" + vocab.RDFSNamespace + ">\n")
	b.WriteString("SELECT ?" + VarLabel + " ?" + VarSubject + " ?" + VarChapter + " ?" + VarComment + "\n")
	b.WriteString("WHERE {\n")
	b.WriteString("  ?target a :Concept ;\n")
	b.WriteString("          rdfs:label ?" + VarLabel + " .\n")
	b.WriteString("  FILTER(regex(?" + VarLabel + ", " + quote(Pattern(terms)) + ", 'i'))\n")
	b.WriteString("  OPTIONAL { ?target rdfs:comment ?" + VarComment + " . }\n")
	b.WriteString("  OPTIONAL {\n")
	b.WriteString("    ?targetSection :hasConcept ?target .\n")
	b.WriteString("    ?targetChapNode :hasSection ?targetSection .\n")
	b.WriteString("    ?targetChapNode rdfs:label ?" + VarChapter + " .\n")
	b.WriteString("    OPTIONAL {\n")
	b.WriteString("      ?targetSubNode :hasChapter ?targetChapNode .\n")
	b.WriteString("      ?targetSubNode rdfs:label ?" + VarSubject + " .\n")
	b.WriteString("    }\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")
	return b.String()
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
	return "'" + r.Replace(s) + "'"
}

// LabelTerms returns the alternation terms of the first regex filter in q.
func LabelTerms(q *Query) []string {
	for _, f := range q.Filters() {
		if pat, ok := findRegexPattern(f); ok {
			return SplitAlternation(pat)
		}
	}
	return nil
}

func findRegexPattern(e Expr) (string, bool) {
	switch x := e.(type) {
	case *CallExpr:
		if x.Name == "regex" {
			if c, ok := x.Args[1].(*ConstExpr); ok {
				return c.Term.Value, true
			}
		}
		for _, a := range x.Args {
			if p, ok := findRegexPattern(a); ok {
				return p, true
			}
		}
	case *BinaryExpr:
		if p, ok := findRegexPattern(x.Left); ok {
			return p, true
		}
		return findRegexPattern(x.Right)
	case *NotExpr:
		return "", false
	}
	return "", false
}

var rawRegexFilter = regexp.MustCompile(`(?i)regex\s*\(\s*(?:str\s*\(\s*)?[?$][\pL\pN_]+\s*\)?\s*,\s*(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")`)

// RawLabelTerms extracts regex filter terms from query text that does not parse.
func RawLabelTerms(text string) []string {
	m := rawRegexFilter.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	pat := m[1]
	if pat == "" {
		pat = m[2]
	}
	pat = strings.NewReplacer(`\\`, `\`, `\'`, `'`, `\"`, `"`).Replace(pat)
	return SplitAlternation(pat)
}

// SplitAlternation splits a regex on top-level '|' and removes escaping backslashes.
func SplitAlternation(pattern string) []string {
	var out []string
	var cur strings.Builder
	depth := 0
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '(' || r == '[':
			depth++
			cur.WriteRune(r)
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case r == '|' && depth == 0:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	out = append(out, cur.String())

	if len(out) == 1 && strings.HasPrefix(out[0], "(") && strings.HasSuffix(out[0], ")") {
		inner := out[0][1 : len(out[0])-1]
		if strings.Contains(inner, "|") && !strings.ContainsAny(inner, "()") {
			return SplitAlternation(inner)
		}
	}
	return out
}
