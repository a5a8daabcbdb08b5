package csvimport

import "strings"

const bom = "\ufeff"

// SplitRow splits one logical CSV row. A field that opens with a double quote
// stays quoted until a quote followed by a comma or the end of the row; commas
// and any other quotes inside it are literal. Every field is trimmed.
func SplitRow(line string) []string {
	var (
		fields   []string
		cur      strings.Builder
		inQuotes bool
		atStart  = true
	)

	for i := 0; i < len(line); i++ {
		c := line[i]

		if inQuotes {
			if c == '"' && (i+1 == len(line) || line[i+1] == ',') {
				inQuotes = false
				continue
			}
			cur.WriteByte(c)
			continue
		}

		switch {
		case c == ',':
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
			atStart = true
		case c == '"' && atStart:
			inQuotes = true
			atStart = false
		case (c == ' ' || c == '\t') && atStart:
			// leading blanks are trimmed anyway, keep looking for an opening quote
		default:
			cur.WriteByte(c)
			atStart = false
		}
	}

	return append(fields, strings.TrimSpace(cur.String()))
}

// Rows breaks text into logical rows. Newlines inside quoted fields do not end
// a row. Quotes open and close with the same rules as SplitRow, so a stray
// quote inside an unquoted field is literal. Blank rows are dropped and a
// leading BOM is removed.
func Rows(text string) []string {
	text = strings.TrimPrefix(text, bom)

	var (
		rows     []string
		cur      strings.Builder
		inQuotes bool
		atStart  = true
	)
	flush := func() {
		row := strings.TrimRight(cur.String(), "\r")
		if strings.TrimSpace(row) != "" {
			rows = append(rows, row)
		}
		cur.Reset()
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' && !inQuotes {
			flush()
			atStart = true
			continue
		}
		cur.WriteByte(c)

		if inQuotes {
			if c == '"' && closesField(text, i+1) {
				inQuotes = false
			}
			continue
		}

		switch {
		case c == ',':
			atStart = true
		case c == '"' && atStart:
			inQuotes = true
			atStart = false
		case c == ' ' || c == '\t':
		default:
			atStart = false
		}
	}
	flush()

	return rows
}

// closesField reports whether a quote right before text[i] ends a quoted field.
func closesField(text string, i int) bool {
	if i == len(text) {
		return true
	}
	switch text[i] {
	case ',', '\r', '\n':
		return true
	}
	return false
}
