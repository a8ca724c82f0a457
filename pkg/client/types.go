package client

// CreateRequest represents a request to register a new monitor
type CreateRequest struct {
	URL        string `json:"url"`
	Selector   string `json:"css_selector"`
	OwnerEmail string `json:"owner_email"`
	OwnerKey   string `json:"owner_key"`
}

// Monitor represents a registered monitor as returned by the API
type Monitor struct {
	ID            int64   `json:"id"`
	URL           string  `json:"url"`
	Selector      string  `json:"css_selector"`
	OwnerEmail    string  `json:"owner_email"`
	LastContent   *string `json:"last_content"`
	LastCheckedAt *string `json:"last_checked_at"`
}

// RunSummary represents the outcome counts of a triggered batch
type RunSummary struct {
	Checked   int `json:"checked"`
	Snapshots int `json:"snapshots"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
