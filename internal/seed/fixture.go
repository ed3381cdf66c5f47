package seed

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iceymoss/kilovolt/pkg/utils"
)

// Record is one entry of the seed fixture. It carries both the author and
// the article columns; db tags name the bind parameters of the seed statements.
type Record struct {
	Author      string  `json:"author" db:"author"`
	AuthorURL   *string `json:"authorUrl" db:"authorUrl"`
	Title       string  `json:"title" db:"title"`
	Category    *string `json:"category" db:"category"`
	PublishedOn *string `json:"publishedOn" db:"publishedOn"`
	Body        string  `json:"body" db:"body"`
}

// ParseFixture decodes a JSON array of records. publishedOn values are
// normalized to YYYY-MM-DD; records without an author name are rejected.
func ParseFixture(r io.Reader) ([]Record, error) {
	var records []Record
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	for i := range records {
		rec := &records[i]
		if strings.TrimSpace(rec.Author) == "" {
			return nil, fmt.Errorf("fixture record %d: author is empty", i)
		}
		if rec.PublishedOn == nil {
			continue
		}
		d, err := utils.ParseDate(*rec.PublishedOn)
		if err != nil {
			return nil, fmt.Errorf("fixture record %d: %w", i, err)
		}
		if d == nil {
			rec.PublishedOn = nil
			continue
		}
		s := d.String()
		rec.PublishedOn = &s
	}
	return records, nil
}
