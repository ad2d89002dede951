package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"badgereq/badge"

	"github.com/xuri/excelize/v2"
)

func sampleEntries() []badge.Entry {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []badge.Entry{
		{ID: 1, RequesterName: "Sam", Company: badge.CompanyOther, EmployeeName: "Jane Doe", LDAP: "AB12345", CreatedAt: created},
		{ID: 2, RequesterName: "Sam", Company: badge.CompanyOther, EmployeeName: "John Roe", AIN: "123456789", CreatedAt: created},
	}
}

func TestWriterForFormat(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"csv", " CSV ", "excel", "xlsx"} {
		if _, err := WriterForFormat(format); err != nil {
			t.Fatalf("format %q: %v", format, err)
		}
	}
	if _, err := WriterForFormat("pdf"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestCSVWriter_WritesHeaderAndRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "requests.csv")
	if err := (&CSVWriter{}).Write(path, sampleEntries()); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][5] != "IDType" || records[2][5] != "Time Clock" || records[2][6] != "123456789" {
		t.Fatalf("unexpected csv content: %v", records)
	}
}

func TestExcelWriter_WritesSheet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "requests.xlsx")
	if err := (&ExcelWriter{}).Write(path, sampleEntries()); err != nil {
		t.Fatalf("write excel: %v", err)
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open excel: %v", err)
	}
	defer file.Close()

	rows, err := file.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 || rows[1][4] != "Jane Doe" || rows[1][5] != "LDAP" {
		t.Fatalf("unexpected excel rows: %v", rows)
	}
}
