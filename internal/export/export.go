// Package export renders an already-authorized submission set as CSV or
// pretty-printed JSON.
package export

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/formloom/formloom/internal/models"
)

// Formats accepted by the export endpoint.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// fixedHeaders lead every CSV export; payload-key columns follow.
var fixedHeaders = []string{"ID", "Created At", "IP Address", "User Agent", "Referrer"}

// JSON renders the full submission records, pretty-printed.
func JSON(subs []models.Submission) ([]byte, error) {
	if subs == nil {
		subs = []models.Submission{}
	}
	return json.MarshalIndent(subs, "", "  ")
}

// CSV renders the submissions with a dynamic column set: the fixed leading
// columns, then the union of all payload keys across the set, sorted
// lexicographically. Rows are padded with empty cells for keys they lack.
// An empty set yields a human-readable placeholder rather than a bare header.
func CSV(subs []models.Submission) []byte {
	if len(subs) == 0 {
		return []byte("No submissions found\n")
	}

	keys := payloadKeys(subs)

	var b strings.Builder
	b.WriteString(strings.Join(append(append([]string{}, fixedHeaders...), keys...), ","))
	b.WriteByte('\n')

	for _, sub := range subs {
		cells := []string{
			sub.ID,
			sub.CreatedAt.UTC().Format(time.RFC3339),
			sub.IPAddress,
			sub.UserAgent,
			sub.Referrer,
		}
		for _, key := range keys {
			cells = append(cells, cell(sub.Data[key]))
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// payloadKeys returns the sorted union of payload keys across the set.
func payloadKeys(subs []models.Submission) []string {
	seen := map[string]bool{}
	for _, sub := range subs {
		for key := range sub.Data {
			seen[key] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// cell renders one payload value. Absent and null values become the empty
// string. Values containing a comma are wrapped in double quotes with inner
// quotes doubled, which standard CSV parsers decode back to the original.
func cell(v any) string {
	if v == nil {
		return ""
	}
	s := valueText(v)
	if strings.Contains(s, ",") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// valueText is the textual form of a payload value: strings verbatim,
// numbers and booleans in their usual notation, composites as JSON text.
func valueText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
