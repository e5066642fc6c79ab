// File: backend/internal/verifier/analysis.go
package verifier

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/belonio2793/backlinkoo/backend/internal/targets"
	"golang.org/x/net/html"
)

// PageFacts are the structural facts extracted from a fetched page. The
// scorer and the registry's type inference both consume them.
type PageFacts struct {
	FinalURL      string
	StatusCode    int
	UsedTLS       bool
	Title         string
	TextContent   string
	WordCount     int
	InternalLinks int
	ExternalLinks int

	HasContactForm   bool
	HasMailtoLink    bool
	ContactEmail     string
	FormFields       []targets.FormField
	GuidelinesFound  bool
	GuidelinesURL    string
	GuidelinesText   string
	GuestPostPageURL string
	FeedURL          string

	AntiBotIndicators map[string]string
}

var guidelineCues = []string{
	"write for us",
	"submission guidelines",
	"submit a guest post",
	"guest post",
	"contribute",
	"become a contributor",
	"editorial guidelines",
}

var minWordsRe = regexp.MustCompile(`(?i)(?:minimum|at least)\s+([\d,]{3,6})\s+words`)
var maxLinksRe = regexp.MustCompile(`(?i)(?:maximum|max|up to)\s+(\d{1,2})\s+(?:back)?links`)

// AnalyzePage parses an HTML document and extracts the structural facts the
// verification record is built from. A parse failure returns facts with only
// the transport-level fields populated.
func AnalyzePage(body []byte, finalURL string, statusCode int) *PageFacts {
	facts := &PageFacts{
		FinalURL:          finalURL,
		StatusCode:        statusCode,
		UsedTLS:           strings.HasPrefix(finalURL, "https://"),
		AntiBotIndicators: map[string]string{},
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return facts
	}

	baseHost := ""
	if parsed, perr := url.Parse(finalURL); perr == nil {
		baseHost = strings.ToLower(parsed.Hostname())
	}

	var textBuilder strings.Builder
	var walk func(n *html.Node, insideForm bool)
	walk = func(n *html.Node, insideForm bool) {
		switch n.Type {
		case html.TextNode:
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				textBuilder.WriteString(trimmed)
				textBuilder.WriteString(" ")
			}
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if n.FirstChild != nil && facts.Title == "" {
					facts.Title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			case "form":
				insideForm = true
			case "input", "textarea", "select":
				if insideForm {
					facts.FormFields = append(facts.FormFields, formFieldFromNode(n))
				}
			case "a":
				href := attrValue(n, "href")
				anchor := strings.ToLower(nodeText(n))
				lowerHref := strings.ToLower(href)
				if strings.HasPrefix(lowerHref, "mailto:") {
					facts.HasMailtoLink = true
					if facts.ContactEmail == "" {
						facts.ContactEmail = strings.SplitN(href[len("mailto:"):], "?", 2)[0]
					}
				} else if href != "" && !strings.HasPrefix(lowerHref, "#") && !strings.HasPrefix(lowerHref, "javascript:") {
					if isInternalLink(href, baseHost) {
						facts.InternalLinks++
					} else {
						facts.ExternalLinks++
					}
					for _, cue := range guidelineCues {
						if strings.Contains(anchor, cue) || strings.Contains(lowerHref, strings.ReplaceAll(cue, " ", "-")) {
							facts.GuidelinesFound = true
							if facts.GuidelinesURL == "" {
								facts.GuidelinesURL = resolveRef(finalURL, href)
							}
							break
						}
					}
				}
			case "link":
				rel := strings.ToLower(attrValue(n, "rel"))
				typ := strings.ToLower(attrValue(n, "type"))
				if rel == "alternate" && (strings.Contains(typ, "rss") || strings.Contains(typ, "atom")) && facts.FeedURL == "" {
					facts.FeedURL = resolveRef(finalURL, attrValue(n, "href"))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, insideForm)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "article", "section", "header", "br":
				textBuilder.WriteString(" ")
			}
		}
	}
	walk(doc, false)

	facts.TextContent = strings.Join(strings.Fields(textBuilder.String()), " ")
	facts.WordCount = len(strings.Fields(facts.TextContent))

	lowerText := strings.ToLower(facts.TextContent)
	for _, cue := range guidelineCues {
		if strings.Contains(lowerText, cue) {
			facts.GuidelinesFound = true
			break
		}
	}
	if facts.GuidelinesFound {
		facts.GuidelinesText = guidelineExcerpt(facts.TextContent)
	}
	facts.HasContactForm = detectContactForm(facts.FormFields)
	return facts
}

// detectContactForm treats a form as a contact/submission form when it has a
// free-text body and some identity field.
func detectContactForm(fields []targets.FormField) bool {
	hasTextarea := false
	hasIdentity := false
	for _, f := range fields {
		switch f.FieldType {
		case "textarea":
			hasTextarea = true
		case "email":
			hasIdentity = true
		}
		lower := strings.ToLower(f.Name)
		if strings.Contains(lower, "email") || strings.Contains(lower, "name") {
			hasIdentity = true
		}
	}
	return hasTextarea && hasIdentity
}

func formFieldFromNode(n *html.Node) targets.FormField {
	field := targets.FormField{
		Name:      attrValue(n, "name"),
		FieldType: strings.ToLower(attrValue(n, "type")),
	}
	switch n.Data {
	case "textarea":
		field.FieldType = "textarea"
	case "select":
		field.FieldType = "select"
	default:
		if field.FieldType == "" {
			field.FieldType = "text"
		}
	}
	if _, ok := findAttr(n, "required"); ok {
		field.Required = true
	}
	if maxLen := attrValue(n, "maxlength"); maxLen != "" {
		if v, err := strconv.Atoi(maxLen); err == nil {
			field.MaxLength = v
		}
	}
	return field
}

// ExtractRequirements pulls editorial-requirement phrases out of page text.
func ExtractRequirements(text string) []string {
	lower := strings.ToLower(text)
	var reqs []string
	if m := minWordsRe.FindStringSubmatch(text); m != nil {
		reqs = append(reqs, "Minimum "+strings.ReplaceAll(m[1], ",", "")+" words")
	}
	for cue, label := range map[string]string{
		"original content":    "Original content only",
		"author bio":          "Author bio required",
		"exclusive":           "Exclusive content required",
		"high-quality images": "High-quality images",
		"proper citation":     "Proper citations",
	} {
		if strings.Contains(lower, cue) {
			reqs = append(reqs, label)
		}
	}
	return reqs
}

// ExtractRestrictions pulls submission-restriction phrases out of page text.
func ExtractRestrictions(text string) []string {
	lower := strings.ToLower(text)
	var restrictions []string
	if m := maxLinksRe.FindStringSubmatch(text); m != nil {
		restrictions = append(restrictions, "Maximum "+m[1]+" backlinks")
	}
	for cue, label := range map[string]string{
		"no affiliate":    "No affiliate links",
		"no promotional":  "No promotional content",
		"no sponsored":    "No undisclosed sponsored content",
		"english only":    "English language only",
		"no ai-generated": "No AI-generated content",
		"no adult":        "No adult content",
		"no gambling":     "No gambling content",
	} {
		if strings.Contains(lower, cue) {
			restrictions = append(restrictions, label)
		}
	}
	return restrictions
}

func guidelineExcerpt(text string) string {
	lower := strings.ToLower(text)
	for _, cue := range guidelineCues {
		idx := strings.Index(lower, cue)
		if idx < 0 {
			continue
		}
		end := idx + 280
		if end > len(text) {
			end = len(text)
		}
		return strings.TrimSpace(text[idx:end])
	}
	return ""
}

func isInternalLink(href, baseHost string) bool {
	parsed, err := url.Parse(href)
	if err != nil {
		return false
	}
	if parsed.Host == "" {
		return true
	}
	return strings.EqualFold(strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www."), strings.TrimPrefix(baseHost, "www."))
}

func resolveRef(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func attrValue(n *html.Node, key string) string {
	v, _ := findAttr(n, key)
	return v
}

func findAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
