package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"childcare/internal/log"
	ports "childcare/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Exporter writes budget-vs-actuals tables to a Google spreadsheet.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base sheet name without year (e.g. "Actuals"); the year is prefixed.
	sheetBase string
}

var _ ports.ActualsExporter = (*Exporter)(nil)

// NewExporter creates an exporter authenticated with service account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewExporter(ctx context.Context, spreadsheetID, sheetBase string) (*Exporter, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = "Actuals"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewExporterWithService(svc, spreadsheetID, sheetBase), nil
}

// NewExporterWithService wraps an existing Sheets service.
func NewExporterWithService(svc *gsheet.Service, spreadsheetID, sheetBase string) *Exporter {
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase}
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", log.FieldComponent, log.ComponentSheets)
	return service, nil
}

// ExportActuals replaces the content of the year's sheet with rows.
func (e *Exporter) ExportActuals(ctx context.Context, year int, rows []ports.ActualsRow) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(e.sheetBase, year)

	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, sheet+"!A:AC", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", sheet, err)
	}

	values := ports.Values(rows)
	rng := fmt.Sprintf("%s!A1:%s%d", sheet, columnName(len(values[0])), len(values))
	vr := &gsheet.ValueRange{Values: values}
	if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Actuals exported to Google Sheets",
		log.FieldComponent, log.ComponentSheets,
		"range", rng,
		"rows", len(rows))
	return rng, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with
// a year.
func yearPrefixedName(base string, year int) string {
	b := strings.TrimSpace(base)
	if len(b) >= 5 && b[4] == ' ' && isDigits(b[:4]) {
		return b
	}
	return fmt.Sprintf("%d %s", year, b)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// columnName converts a 1-based column index to its A1 letters.
func columnName(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}
