package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDelimiter(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want rune
	}{
		{name: "semicolon", in: "a;b;c\n1;2;3\n", want: ';'},
		{name: "comma", in: "a,b,c\n1,2,3\n", want: ','},
		{name: "tab", in: "a\tb\n1\t2\n", want: '\t'},
		{name: "pipe", in: "a|b\n1|2\n", want: '|'},
		{name: "semicolon with decimal commas", in: "time;pv\n2024-01-01 10:00;1,5\n2024-01-01 10:15;2,5\n", want: ';'},
		{name: "single column", in: "value\n1\n", want: ','},
		{name: "empty", in: "", want: ','},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectDelimiter([]byte(tc.in)))
		})
	}
}

func TestReadDelimitedStripsBOM(t *testing.T) {
	in := "\xEF\xBB\xBFDatetime;Výroba FVE (kWh)\n2024-06-01 10:00;1,25\n\n2024-06-01 10:15;2\n"
	table, err := ReadDelimited(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Datetime", table.Rows[0][0])
	assert.Equal(t, []string{"2024-06-01 10:00", "1,25"}, table.Rows[1])
}

func TestReadRejectsUnknownExtension(t *testing.T) {
	_, err := Read("data.xls", strings.NewReader("x"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedExtension)
	assert.False(t, Supported("report.pdf"))
	assert.True(t, Supported("REPORT.XLSX"))
}

func TestReadEmptyFile(t *testing.T) {
	_, err := Read("empty.csv", strings.NewReader(""), Options{})
	assert.ErrorIs(t, err, ErrEmptyFile)
}
