// Package digest renders a stored content batch as an HTML document
// grouped by source, ready for submission as a CMS draft.
package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/CurationsLA/lemon/internal/domain"
)

// DefaultTitle is used when a draft request carries no title.
const DefaultTitle = "Good Vibes Daily Digest"

// digestTemplate is the full document layout. Sources with zero accepted
// items are filtered out before rendering so the published digest never
// shows an empty section.
const digestTemplate = `<h1>{{.Title}}</h1>
<p>Positive local news for {{.Date}}, curated from {{.SourceCount}} sources.</p>
{{range .Groups}}<h2>{{.Heading}}</h2>
<ul>
{{range .Items}}<li><a href="{{.Link}}">{{.Title}}</a>{{if .Excerpt}}<br><small>{{.Excerpt}}</small>{{end}}</li>
{{end}}</ul>
{{end}}<p><em>Curated with good vibes by CurationsLA.</em></p>
`

var tmpl = template.Must(template.New("digest").Parse(digestTemplate))

type group struct {
	Heading string
	Items   []domain.ClassifiedItem
}

type digestData struct {
	Title       string
	Date        string
	SourceCount int
	Groups      []group
}

// Compose renders the batch into a titled HTML digest. Output is
// deterministic for identical input ordering; no filtering or I/O happens
// here, only layout.
func Compose(batch *domain.ContentBatch, title string) (string, error) {
	if title == "" {
		title = DefaultTitle
	}

	groups := make([]group, 0, len(batch.Results))
	for _, r := range batch.Results {
		if len(r.Items) == 0 {
			continue
		}
		groups = append(groups, group{
			Heading: fmt.Sprintf("%s – %s", r.Source.Name, r.Source.Category),
			Items:   r.Items,
		})
	}

	data := digestData{
		Title:       title,
		Date:        batch.CreatedAt.UTC().Format(time.DateOnly),
		SourceCount: len(batch.SourceURLs),
		Groups:      groups,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}
