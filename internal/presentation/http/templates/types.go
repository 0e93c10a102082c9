package templates

// ReportPageData describes a stored discovery rendered as a standalone HTML report.
type ReportPageData struct {
	Title        string
	ID           string
	FieldOfTopic string
	Keywords     string
	AnalysisText string
	InputTokens  int64
	OutputTokens int64
	MaxTokens    int
	Temperature  float64
	CreatedAt    string
}

// ErrorPageData describes the HTML error page shown by report routes.
type ErrorPageData struct {
	Title       string
	StatusLabel string
	Message     string
}
