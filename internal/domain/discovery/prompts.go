package discovery

import (
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
)

// SystemPrompt is sent verbatim with every discovery.
const SystemPrompt = `
You are an expert content strategist specializing in discovering eye-catching, controversial, and engaging questions. Your task is to analyze given keywords within a specific field and identify the most attention-grabbing questions that could attract the maximum audience.

Your response should focus on finding questions that are:
- Concise and punchy
- Controversial or thought-provoking
- Sensitive to current debates or hot topics
- Eye-catching and clickable
- Relevant to the target field and keywords

Focus on questions that would make people stop scrolling and want to engage, debate, or learn more.
`

// PromptTemplate is rendered with the FieldOfTopic and Keywords slots.
const PromptTemplate = `
Field of Topic: {{.FieldOfTopic}}
Keywords: {{.Keywords}}

Based on the above field and keywords, discover the most eye-catching questions that could attract maximum audience attention. Your analysis should include:

1. **Primary Eye-Catching Question**
   - The single most controversial/attention-grabbing question
   - Should be concise (under 15 words)
   - Must be relevant to the field and keywords

2. **Alternative Compelling Questions**
   - 3-5 additional questions with high engagement potential
   - Each should approach the topic from different controversial angles
   - Focus on current debates, sensitive issues, or trending concerns

3. **Controversy Analysis**
   - Why these questions are controversial or attention-grabbing
   - What makes them sensitive or debate-worthy
   - Current relevance and trending factors

4. **Audience Appeal Factors**
   - What specific emotions these questions trigger (curiosity, outrage, fear, excitement)
   - Target audience segments most likely to engage
   - Psychological hooks that make these questions irresistible

5. **Engagement Potential**
   - Expected types of audience reactions
   - Potential for viral spread or heated discussions
   - Social media shareability factors

6. **Ethical Considerations**
   - Any potential risks or sensitive boundaries
   - How to handle controversial aspects responsibly
   - Balance between eye-catching and appropriate

Format your response as a strategic analysis focused on maximum audience engagement while maintaining ethical standards.
`

var promptTemplate = template.Must(template.New("interest_discovery").Option("missingkey=error").Parse(PromptTemplate))

type promptSlots struct {
	FieldOfTopic string
	Keywords     string
}

// RenderPrompt substitutes the field of topic and keywords into PromptTemplate.
func RenderPrompt(fieldOfTopic, keywords string) (string, error) {
	var builder strings.Builder
	if err := promptTemplate.Execute(&builder, promptSlots{FieldOfTopic: fieldOfTopic, Keywords: keywords}); err != nil {
		return "", eris.Wrap(err, "rendering interest discovery prompt")
	}
	return builder.String(), nil
}
