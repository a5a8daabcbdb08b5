package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRow(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		expected []string
	}{
		{"quoted comma", `a,"b,c",d`, []string{"a", "b,c", "d"}},
		{"trims fields", ` a , b ,c `, []string{"a", "b", "c"}},
		{"empty fields", `a,,c,`, []string{"a", "", "c", ""}},
		{"quoted last field", `1,"Perez, Ana"`, []string{"1", "Perez, Ana"}},
		{"empty quoted field", `"",x`, []string{"", "x"}},
		{"inner quotes are literal", `"say ""hi""",2`, []string{`say ""hi""`, "2"}},
		{"quote before quote does not close", `"a"",b`, []string{`a"`, "b"}},
		{"quote not followed by comma stays", `"a"b,c",d`, []string{`a"b,c`, "d"}},
		{"quote in the middle is literal", `ab"c,d`, []string{`ab"c`, "d"}},
		{"blank before opening quote", `x, "y,z"`, []string{"x", "y,z"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SplitRow(tc.line))
		})
	}
}

func TestRows(t *testing.T) {
	text := "\ufeffh1,h2\r\n\r\n1,\"multi\nline\"\n2,x\n"
	rows := Rows(text)
	assert.Equal(t, []string{"h1,h2", "1,\"multi\nline\"", "2,x"}, rows)
}

func TestRowsStrayQuote(t *testing.T) {
	text := "Student,ID,SIS Login ID\n" +
		"O\"Brien Ana,1001,aobrien@uni.edu\n" +
		"\"Perez, Luis\",1002,lperez@uni.edu\r\n" +
		"\"Diaz, Eva\",1003,\"edia\"z@uni.edu\"\n"

	rows := Rows(text)
	require.Len(t, rows, 4)
	assert.Equal(t, "O\"Brien Ana,1001,aobrien@uni.edu", rows[1])
	assert.Equal(t, "\"Perez, Luis\",1002,lperez@uni.edu", rows[2])
	assert.Equal(t, []string{"Diaz, Eva", "1003", "edia\"z@uni.edu"}, SplitRow(rows[3]))
}

func TestRowsQuotedNewlineAfterBlank(t *testing.T) {
	rows := Rows("a, \"x\ny\",b\nc\n")
	assert.Equal(t, []string{"a, \"x\ny\",b", "c"}, rows)
}
