package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"badgereq/badge"
)

type Writer interface {
	Write(path string, entries []badge.Entry) error
}

func WriterForFormat(format string) (Writer, error) {
	switch normalizeFormat(format) {
	case "csv":
		return &CSVWriter{}, nil
	case "excel", "xlsx":
		return &ExcelWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

var headers = []string{"ID", "CreatedAt", "RequesterName", "Company", "EmployeeName", "IDType", "IDValue"}

func row(entry badge.Entry) []string {
	return []string{
		strconv.FormatInt(entry.ID, 10),
		entry.CreatedAt.UTC().Format(time.RFC3339),
		entry.RequesterName,
		string(entry.Company),
		entry.EmployeeName,
		string(entry.IDKind()),
		entry.IDValue(),
	}
}

func normalizeFormat(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}
