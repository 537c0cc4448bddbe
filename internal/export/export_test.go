package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const survey = "\ufeffBarrio,Hogar,Evacuacion,Observaciones\r\n" +
	"El Danubio,1,No,\"Vive cerca, de la quebrada\"\r\n" +
	"\r\n" +
	"La María,2,Si\r\n" +
	"El Danubio,3,No,\"Dijo \"\"no sé\"\"\"\r\n"

func TestRead(t *testing.T) {
	tbl, err := Read(strings.NewReader(survey), DefaultLimit)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	wantHeaders := []string{"Barrio", "Hogar", "Evacuacion", "Observaciones"}
	if diff := cmp.Diff(wantHeaders, tbl.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	wantRows := [][]string{
		{"El Danubio", "1", "No", "Vive cerca, de la quebrada"},
		{"La María", "2", "Si", ""},
		{"El Danubio", "3", "No", `Dijo "no sé"`},
	}
	if diff := cmp.Diff(wantRows, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_Limit(t *testing.T) {
	tbl, err := Read(strings.NewReader(survey), 2)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(tbl.Rows))
	}
}

func TestRead_Empty(t *testing.T) {
	if _, err := Read(strings.NewReader(""), 10); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("expected ErrEmptyFile, got %v", err)
	}
}

func TestReadFile_Missing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), 10); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	tbl, _ := Read(strings.NewReader(survey), DefaultLimit)

	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	want := "Barrio,Hogar,Evacuacion,Observaciones\r\n" +
		"El Danubio,1,No,\"Vive cerca, de la quebrada\"\r\n" +
		"La María,2,Si,\r\n" +
		"El Danubio,3,No,\"Dijo \"\"no sé\"\"\"\r\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	empty := &Table{Headers: []string{"a"}}
	if err := empty.WriteCSV(&buf); err != nil || buf.Len() != 0 {
		t.Errorf("empty table should write nothing, got %q (%v)", buf.String(), err)
	}
}

func TestRecords(t *testing.T) {
	tbl, _ := Read(strings.NewReader(survey), 1)
	want := []map[string]string{{
		"Barrio":        "El Danubio",
		"Hogar":         "1",
		"Evacuacion":    "No",
		"Observaciones": "Vive cerca, de la quebrada",
	}}
	if diff := cmp.Diff(want, tbl.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLimit(t *testing.T) {
	tests := map[string]int{
		"":     DefaultLimit,
		"abc":  DefaultLimit,
		"0":    1,
		"-5":   1,
		"50":   50,
		"5000": MaxLimit,
		" 10 ": 10,
	}
	for in, want := range tests {
		if got := ParseLimit(in); got != want {
			t.Errorf("ParseLimit(%q) = %d, want %d", in, got, want)
		}
	}
}
