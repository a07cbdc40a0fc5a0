package domain

// QueryResult is the normalized shape of a successful statement execution.
// Columns keep the store's native order; each row is keyed by column name.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ChatResponse is the single payload returned for one chat message.
// Columns/Rows and ErrorMessage are mutually exclusive, and both require Statement.
type ChatResponse struct {
	Text         string           `json:"text"`
	Statement    string           `json:"statement,omitempty"`
	Columns      []string         `json:"columns,omitzero"`
	Rows         []map[string]any `json:"rows,omitzero"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
}

// HasStatement reports whether a statement was extracted from the reply.
func (r *ChatResponse) HasStatement() bool {
	return r.Statement != ""
}
