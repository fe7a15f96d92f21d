package survey

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/asmavensocial/installation-dashbaord/internal/errors"
	"github.com/asmavensocial/installation-dashbaord/internal/logging"
)

// Column headers expected in the survey workbook. These are the exact headers
// produced by the response form; loading validates them after cleaning.
const (
	colTimestamp  = "Timestamp"
	colChannel    = "Channel"
	colDenaveCode = "Denave Code"
	colCodes      = "Codes"
	colStoreName  = "Store Name"
	colZone       = "Zone"
	colState      = "State"
	colCity       = "City"
	colLocation   = "Location"
	colDeployed   = "Have you deployed the branding at the store?"
	colReason     = "Reason"
	colRemarks    = "Remarks"
	colStoreFront = "Store Front Image With Date Time"
	colDeploy1    = "Deployment Image 1 With Date Time"
	colDeploy2    = "Deployment Image 2 With Date Time"
	colDeploy3    = "Deployment Image 3 With Date Time"
)

var requiredColumns = []string{
	colTimestamp, colChannel, colDenaveCode, colCodes, colStoreName,
	colZone, colState, colCity, colLocation, colDeployed, colReason,
	colRemarks, colStoreFront, colDeploy1, colDeploy2, colDeploy3,
}

// MissingColumnsError reports required columns absent from the workbook,
// with possible matches from the actual header row to help fix the sheet.
type MissingColumnsError struct {
	Missing     []string
	Suggestions map[string][]string
}

func (e *MissingColumnsError) Error() string {
	var b strings.Builder
	b.WriteString("required columns missing from spreadsheet: ")
	for i, col := range e.Missing {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%q", col)
		if hints := e.Suggestions[col]; len(hints) > 0 {
			fmt.Fprintf(&b, " (possible matches: %s)", strings.Join(hints, ", "))
		}
	}
	return b.String()
}

var loaderLogger *slog.Logger

func loadLogger() *slog.Logger {
	if loaderLogger == nil {
		if l := logging.ForService("survey.loader"); l != nil {
			loaderLogger = l
		} else {
			loaderLogger = slog.Default().With("service", "survey.loader")
		}
	}
	return loaderLogger
}

// Load reads survey records from the workbook at path. An empty sheet name
// selects the workbook's first sheet.
func Load(path, sheet string) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("survey").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			loadLogger().Warn("Failed to close workbook", "path", path, "error", closeErr)
		}
	}()

	records, err := loadWorkbook(f, sheet)
	if err != nil {
		return nil, err
	}
	loadLogger().Info("Survey workbook loaded", "path", path, "records", len(records))
	return records, nil
}

// loadWorkbook extracts records from an open workbook. Split out so tests can
// feed in-memory files built with excelize directly.
func loadWorkbook(f *excelize.File, sheet string) ([]Record, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.New(err).
			Component("survey").
			Category(errors.CategorySpreadsheet).
			Context("sheet", sheet).
			Build()
	}
	if len(rows) == 0 {
		return nil, errors.Newf("sheet %q is empty", sheet).
			Component("survey").
			Category(errors.CategorySpreadsheet).
			Build()
	}

	// Header cells come back with embedded newlines and non-breaking spaces
	// when the form wraps long questions; clean before matching.
	header := make([]string, len(rows[0]))
	index := make(map[string]int, len(rows[0]))
	for i, cell := range rows[0] {
		cleaned := cleanColumn(cell)
		header[i] = cleaned
		if _, exists := index[cleaned]; !exists {
			index[cleaned] = i
		}
	}

	if err := validateColumns(header, index); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cell := func(col string) string {
			i := index[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		records = append(records, Record{
			Timestamp:        cell(colTimestamp),
			Channel:          cell(colChannel),
			DenaveCode:       cell(colDenaveCode),
			Codes:            cell(colCodes),
			StoreName:        cell(colStoreName),
			Zone:             cell(colZone),
			State:            cell(colState),
			City:             cell(colCity),
			Location:         cell(colLocation),
			Deployed:         cell(colDeployed),
			Reason:           cell(colReason),
			Remarks:          cell(colRemarks),
			StoreFrontImage:  cell(colStoreFront),
			DeploymentImage1: cell(colDeploy1),
			DeploymentImage2: cell(colDeploy2),
			DeploymentImage3: cell(colDeploy3),
		})
	}
	return records, nil
}

// cleanColumn normalizes a header cell: embedded line breaks and non-breaking
// spaces become plain spaces, surrounding whitespace is trimmed.
func cleanColumn(name string) string {
	cleaned := strings.NewReplacer("\n", " ", "\r", "", "\u00a0", " ").Replace(name)
	return strings.TrimSpace(cleaned)
}

// validateColumns checks all required columns are present, collecting fuzzy
// suggestions for each missing one from the actual header row.
func validateColumns(header []string, index map[string]int) error {
	var missing []string
	suggestions := make(map[string][]string)

	for _, col := range requiredColumns {
		if _, ok := index[col]; ok {
			continue
		}
		missing = append(missing, col)
		wanted := strings.ToLower(col)
		for _, actual := range header {
			have := strings.ToLower(actual)
			if have == "" {
				continue
			}
			if strings.Contains(have, wanted) || strings.Contains(wanted, have) {
				suggestions[col] = append(suggestions[col], actual)
			}
		}
	}

	if len(missing) == 0 {
		return nil
	}
	return errors.New(&MissingColumnsError{Missing: missing, Suggestions: suggestions}).
		Component("survey").
		Category(errors.CategoryValidation).
		Context("missing_count", len(missing)).
		Build()
}
