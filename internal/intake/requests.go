package intake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/aidiscovery-cli/internal/audit"
)

// Column aliases, matched after folding case and stripping accents.
var columns = map[string][]string{
	"name":     {"business_name", "name", "nome", "empresa", "negocio"},
	"city":     {"city", "cidade", "municipio"},
	"phone":    {"phone", "telefone", "whatsapp", "celular"},
	"category": {"category", "categoria", "segmento"},
	"place_id": {"place_id", "placeid", "google_place_id"},
}

// ReadRequests loads audit requests from a .csv or .xlsx file. The first row
// is the header; rows lacking both a place id and a name/city pair are
// skipped.
func ReadRequests(ctx context.Context, path string) ([]audit.Request, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, eris.Wrapf(openErr, "intake: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		rows, err = readCSV(ctx, f)
	case ".xlsx":
		rows, err = ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("intake: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return ParseRows(rows)
}

// ParseRows maps a header row plus data rows to requests.
func ParseRows(rows [][]string) ([]audit.Request, error) {
	if len(rows) == 0 {
		return nil, eris.New("intake: empty file")
	}
	idx := headerIndex(rows[0])
	if _, ok := idx["place_id"]; !ok {
		if _, ok := idx["name"]; !ok {
			return nil, eris.New("intake: header needs a name or place_id column")
		}
	}

	var out []audit.Request
	for i, row := range rows[1:] {
		req := audit.Request{
			BusinessName: cell(row, idx, "name"),
			City:         cell(row, idx, "city"),
			Phone:        cell(row, idx, "phone"),
			Category:     cell(row, idx, "category"),
			PlaceID:      cell(row, idx, "place_id"),
		}
		if isBlank(row) {
			continue
		}
		if err := req.Validate(); err != nil {
			zap.L().Warn("intake: skipping row", zap.Int("row", i+2), zap.Error(err))
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		key := foldHeader(h)
		for field, aliases := range columns {
			if _, seen := idx[field]; seen {
				continue
			}
			for _, a := range aliases {
				if key == a {
					idx[field] = i
				}
			}
		}
	}
	return idx
}

// foldHeader lowercases, strips accents and joins words with underscores,
// so "Negócio" matches "negocio" and "Place ID" matches "place_id".
func foldHeader(s string) string {
	s = cases.Fold().String(norm.NFD.String(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))))
	var sb strings.Builder
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r):
		case r == ' ' || r == '-':
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func cell(row []string, idx map[string]int, field string) string {
	i, ok := idx[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
