package doctree

import "fmt"

// Stage names an external-service step of the pipeline.
type Stage string

const (
	StageRender   Stage = "render"
	StageOCR      Stage = "ocr"
	StageEmbed    Stage = "embed"
	StageGenerate Stage = "generate"
)

// StageError reports a failed external-service call. Page is 0 when the
// failure is not tied to one page.
type StageError struct {
	Stage    Stage
	Document string
	Page     int
	Err      error
}

func (e *StageError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s failed for %s page %d: %v", e.Stage, e.Document, e.Page, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.Document, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
