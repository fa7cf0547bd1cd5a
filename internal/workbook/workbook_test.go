package workbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "teacli/internal/errors"
)

func writeTestWorkbook(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), "Notes"))
	require.NoError(t, f.SetCellValue("Notes", "A1", "miscellaneous"))

	_, err := f.NewSheet("HX List")
	require.NoError(t, err)
	headers := []interface{}{"HX Name", "Duty (kW)", "Area (m2)"}
	require.NoError(t, f.SetSheetRow("HX List", "A1", &headers))
	row := []interface{}{"E-101", 120.5, 30.2}
	require.NoError(t, f.SetSheetRow("HX List", "A2", &row))

	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestOpen_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip archive"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestBestSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wb.xlsx")
	writeTestWorkbook(t, path)

	wb, err := Open(path)
	require.NoError(t, err)
	defer wb.Close()

	sheet, rows, err := wb.BestSheet([]string{"duty", "area", "hx"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "HX List", sheet)
	require.Len(t, rows, 2)
	assert.Equal(t, "E-101", rows[1][0])
}

func TestBestSheet_NoMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wb.xlsx")
	writeTestWorkbook(t, path)

	wb, err := Open(path)
	require.NoError(t, err)
	defer wb.Close()

	_, _, err = wb.BestSheet([]string{"zebra", "quux"}, 1)
	require.Error(t, err)
}
