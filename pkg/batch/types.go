package batch

// Item represents one parsed row from a batch CSV
type Item struct {
	Row     int         `json:"row"`
	Content string      `json:"content"`
	QRType  ContentType `json:"qr_type"`
	Label   string      `json:"label,omitempty"`
}

// RenderedItem represents one rendered QR image ready for validation and archiving.
// ImageData is a base64-encoded PNG, optionally carrying a data-URL prefix.
type RenderedItem struct {
	Row       int    `json:"row"`
	Content   string `json:"content"`
	Label     string `json:"label,omitempty"`
	ImageData string `json:"image_data"`
}

// VerdictState classifies the outcome of validating one rendered item
type VerdictState string

const (
	StatePass             VerdictState = "pass"
	StateContentMismatch  VerdictState = "content_mismatch"
	StateUndetectable     VerdictState = "undetectable"
	StateDecodeInputError VerdictState = "decode_input_error"
)

// Verdict is the validation result for one row. Verdicts are collected in
// row order; a non-pass verdict never aborts the batch.
type Verdict struct {
	Row            int          `json:"row"`
	State          VerdictState `json:"state"`
	DecodedContent string       `json:"decoded_content,omitempty"`
	Message        string       `json:"message"`
	Suggestions    []string     `json:"suggestions,omitempty"`
}

// Passed reports whether the decoded content matched the expected content
func (v Verdict) Passed() bool {
	return v.State == StatePass
}

// Outcome is the terminal result of one batch run. RowCount is the number
// of rows archived, which exceeds len(Verdicts) when validation is off.
type Outcome struct {
	Success  bool      `json:"success"`
	ZipPath  string    `json:"zip_path,omitempty"`
	RowCount int       `json:"row_count"`
	Verdicts []Verdict `json:"verdicts"`
	Error    string    `json:"error,omitempty"`
}

// RunRequest represents a request to run a batch job
type RunRequest struct {
	Job        string            `json:"job"` // batch_archive
	CSVContent string            `json:"csv_content"`
	ZipPath    string            `json:"zip_path"`
	Validate   bool              `json:"validate"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// RunResponse represents the response from triggering a batch run
type RunResponse struct {
	RunID string `json:"run_id"`
}

// JobType constants
const (
	JobBatchArchive = "batch_archive"
)
