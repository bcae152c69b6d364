package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/docq/internal/field"
)

// PathLiteral returns the SQL string literal of the JSON path for p,
// e.g. '$."author"."name"'. Paths are inlined rather than bound so the
// expression text of a query matches the expression text of an index.
//
// Quoted labels cannot contain a double quote, so such segments are
// rejected.
func PathLiteral(p field.Path) (string, error) {
	var sb strings.Builder
	sb.WriteString("'$")
	for _, seg := range p.Segments() {
		if strings.ContainsRune(seg, '"') {
			return "", fmt.Errorf("field %q: double quote not supported in SQL path", p)
		}
		sb.WriteString(`."`)
		sb.WriteString(strings.ReplaceAll(seg, "'", "''"))
		sb.WriteByte('"')
	}
	sb.WriteByte('\'')
	return sb.String(), nil
}

// extract returns json_extract(col, path) for p.
func extract(col string, p field.Path) (string, error) {
	lit, err := PathLiteral(p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("json_extract(%s, %s)", col, lit), nil
}

// jsonType returns json_type(col, path) for p.
func jsonType(col string, p field.Path) (string, error) {
	lit, err := PathLiteral(p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("json_type(%s, %s)", col, lit), nil
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
