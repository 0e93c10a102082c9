package discovery

import (
	"strings"
	"testing"
)

func TestRenderPromptFillsSlots(t *testing.T) {
	t.Parallel()

	prompt, err := RenderPrompt("space exploration", "mars colonization risks")
	if err != nil {
		t.Fatalf("RenderPrompt returned error: %v", err)
	}

	if !strings.HasPrefix(prompt, "\nField of Topic: space exploration\nKeywords: mars colonization risks\n") {
		t.Fatalf("expected slots at the head of the prompt, got %q", prompt[:80])
	}

	if strings.Contains(prompt, "{{") {
		t.Fatalf("expected no unrendered template actions, got %q", prompt)
	}
}

func TestRenderPromptDoesNotEscapeInput(t *testing.T) {
	t.Parallel()

	keywords := `<b>"AI" & jobs</b> {{.FieldOfTopic}}`
	prompt, err := RenderPrompt("labor", keywords)
	if err != nil {
		t.Fatalf("RenderPrompt returned error: %v", err)
	}

	if !strings.Contains(prompt, "Keywords: "+keywords+"\n") {
		t.Fatalf("expected keywords to be inserted verbatim, got %q", prompt)
	}
}
