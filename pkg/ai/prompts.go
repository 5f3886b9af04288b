package ai

import (
	"fmt"
	"net/url"
	"strings"

	"resume-canvas/internal/domain"

	"golang.org/x/net/publicsuffix"
)

// FallbackSuggestion is shown whenever a suggestion cannot be produced.
const FallbackSuggestion = "Great start! Keep adding more details."

// AssistantName is how the coach introduces itself.
const AssistantName = "CV Sprite"

func chatInstruction(language string) string {
	return fmt.Sprintf("You are a friendly, encouraging resume-writing coach named %q. "+
		"Help the user articulate their experience and skills and guide them towards a strong resume. "+
		"Always talk to the user in %s.", AssistantName, language)
}

func generatePrompt(items []domain.CanvasItem, language string) string {
	var notes strings.Builder
	var links []string
	for _, it := range items {
		if it.Kind != domain.ItemText {
			continue
		}
		fmt.Fprintf(&notes, "- %s\n", it.Content)
		links = append(links, findLinks(it.Content)...)
	}

	var b strings.Builder
	b.WriteString(`You are an expert resume writer and document designer. Your task is to produce a professional resume from the user's unstructured notes and images.

- Analyse the text notes to understand the user's experience, skills and achievements.
- Use the images as context for their roles, projects or achievements.
- Organise the information into standard resume sections (for example Summary, Experience, Education, Skills).
- Write concise, action-oriented bullet points.
- Format the whole output as a single Markdown document. Do not wrap it in a code block (for example ` + "```markdown" + `). Use headings, bold, italics and bullet lists for a clean, professional layout.
- Build the resume STRICTLY from the notes provided below.
- Do NOT add any section or detail that cannot be inferred directly from the notes.
- If there is no information for a standard section (such as Education), omit that section entirely. Your goal is to organise the given information professionally, not to invent new content.
`)
	fmt.Fprintf(&b, "- Write the resume in %s.\n", language)
	b.WriteString("\nHere are the user's notes:\n")
	b.WriteString(notes.String())
	if len(links) > 0 {
		b.WriteString("\nLinks mentioned in the notes, with the label to display for each:\n")
		for _, l := range links {
			fmt.Fprintf(&b, "- [%s](%s)\n", linkLabel(l), l)
		}
	}
	b.WriteString("\nNow write the resume.\n")
	return b.String()
}

func suggestPrompt(newItem domain.CanvasItem, prior []domain.CanvasItem, language string) string {
	var others strings.Builder
	for _, it := range prior {
		if it.ID == newItem.ID || it.Kind != domain.ItemText {
			continue
		}
		fmt.Fprintf(&others, "- %s\n", it.Content)
	}

	added := "an image"
	if newItem.Kind == domain.ItemText {
		added = fmt.Sprintf("a text note that reads: %q", newItem.Content)
	}

	return fmt.Sprintf(`As an encouraging resume coach, you are watching the user build their resume on a canvas. They just added %s.
Give one very short, helpful and encouraging suggestion (1-2 sentences at most) that helps them expand on this idea or think about what to add next.
For reference, here are the other text notes on their canvas:
%s
Keep the tone friendly and conversational, answer in %s and do not use markdown.`, added, others.String(), language)
}

// findLinks returns the words of s that look like web addresses.
func findLinks(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		f = strings.TrimRight(f, ".,;:!?)]}\"'")
		f = strings.TrimLeft(f, "([{\"'")
		lower := strings.ToLower(f)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "www.") {
			out = append(out, f)
		}
	}
	return out
}

// linkLabel shortens a URL to its registrable domain for display.
func linkLabel(raw string) string {
	candidate := raw
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return raw
	}
	host := parsed.Hostname()
	if host == "" {
		return raw
	}
	if etld, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return strings.TrimPrefix(etld, "www.")
	}
	return strings.TrimPrefix(host, "www.")
}

// stripCodeFences removes a Markdown code fence wrapped around the whole
// document, which models emit despite being told not to.
func stripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	} else {
		return ""
	}
	t = strings.TrimRight(t, " \t\r\n")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}
