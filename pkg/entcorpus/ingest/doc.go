package ingest

import (
	"fmt"
	"strings"

	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
	"github.com/cognicore/entcorpus/pkg/entcorpus/redirect"
)

// Article is one record of the dump.
type Article struct {
	Title      string
	Text       string            // plain body text
	SourceText string            // raw markup, read only for [[links]]
	Redirects  []redirect.Source // titles that redirect here
}

// Validate checks if the article has required fields
func (a *Article) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%w: article title is required", internalerr.ErrMalformedRecord)
	}
	return nil
}
