package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestParseRows_NormalizesHeadersAndCells(t *testing.T) {
	input := " EmployeeId ,Name, Email ,,Salary\n E1 , Ada ,ada@x.io,skip, 100 ,extra\n"

	parsed, err := ParseRows(strings.NewReader(input), "")
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}

	wantHeaders := []string{"employeeid", "name", "email", "_3", "salary"}
	if strings.Join(parsed.Headers, "|") != strings.Join(wantHeaders, "|") {
		t.Fatalf("Headers = %v, want %v", parsed.Headers, wantHeaders)
	}
	if len(parsed.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(parsed.Rows))
	}

	row := parsed.Rows[0]
	if row.Value("employeeId") != "E1" || row["name"] != "Ada" || row["salary"] != "100" {
		t.Errorf("cells not trimmed or keyed: %v", row)
	}
	if row["_5"] != "extra" {
		t.Errorf("extra cell = %q, want keyed _5", row["_5"])
	}
}

func TestParseRows_ShortLinesAndBlankLines(t *testing.T) {
	input := "employeeId,name,email\nE1,Ada\n\nE2,Bob,bob@x.io\n"

	parsed, err := ParseRows(strings.NewReader(input), "utf-8")
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	if len(parsed.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(parsed.Rows))
	}
	if _, ok := parsed.Rows[0].Get("email"); ok {
		t.Error("short line should not carry the trailing key")
	}
}

func TestParseRows_StripsBOM(t *testing.T) {
	input := "\xEF\xBB\xBFemployeeId,name\nE1,Ada\n"

	parsed, err := ParseRows(strings.NewReader(input), "")
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	if parsed.Headers[0] != "employeeid" {
		t.Fatalf("first header = %q, BOM not stripped", parsed.Headers[0])
	}
}

func TestParseRows_DecodesDeclaredCharset(t *testing.T) {
	encoded, err := charmap.Windows1251.NewEncoder().String("name,department\nИван,Отдел кадров\n")
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	parsed, err := ParseRows(bytes.NewReader([]byte(encoded)), "windows-1251")
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	if got := parsed.Rows[0]["name"]; got != "Иван" {
		t.Errorf("name = %q, want Иван", got)
	}
	if got := parsed.Rows[0]["department"]; got != "Отдел кадров" {
		t.Errorf("department = %q", got)
	}
}

func TestParseRows_Empty(t *testing.T) {
	for _, input := range []string{"", "employeeId,name\n"} {
		parsed, err := ParseRows(strings.NewReader(input), "")
		if err != nil {
			t.Fatalf("ParseRows(%q): %v", input, err)
		}
		if len(parsed.Rows) != 0 {
			t.Errorf("ParseRows(%q) rows = %d, want 0", input, len(parsed.Rows))
		}
	}
}

func TestParseRows_UnknownEncoding(t *testing.T) {
	_, err := ParseRows(strings.NewReader("a\n1\n"), "klingon-8")
	if !errors.Is(err, ErrUnsupportedEncoding) {
		t.Fatalf("expected ErrUnsupportedEncoding, got %v", err)
	}
}

func TestResolveEncoding_Aliases(t *testing.T) {
	for _, label := range []string{"", "UTF-8", "latin1", "iso-8859-1", "windows-1252", "shift_jis"} {
		if _, err := ResolveEncoding(label); err != nil {
			t.Errorf("ResolveEncoding(%q): %v", label, err)
		}
	}
}

func TestMissingColumns(t *testing.T) {
	got := MissingColumns([]string{"employeeid", "name", "salary"})
	want := "email,department,joiningDate"
	if strings.Join(got, ",") != want {
		t.Errorf("MissingColumns = %v, want %s", got, want)
	}

	if got := MissingColumns([]string{"employeeid", "name", "email", "department", "salary", "joiningdate"}); len(got) != 0 {
		t.Errorf("expected none missing, got %v", got)
	}
}
