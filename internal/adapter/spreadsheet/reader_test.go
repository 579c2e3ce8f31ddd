package spreadsheet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/incident"
)

func TestLoad_Workbook(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	_, err := f.NewSheet("ดินถล่ม")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("ดินถล่ม", "A1", &[]any{"วันที่", "จังหวัด", "อำเภอ"}))
	require.NoError(t, f.SetSheetRow("ดินถล่ม", "A2", &[]any{time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), "เชียงใหม่", "แม่ริม"}))
	require.NoError(t, f.SetSheetRow("ดินถล่ม", "A3", &[]any{"3/5/2567", "เชียงใหม่", "แม่ริม"}))

	path := filepath.Join(t.TempDir(), "incidents.xlsx")
	require.NoError(t, f.SaveAs(path))

	sheets, err := Load(path)
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	rows, invalid, layout, err := incident.Parse(sheets)
	require.NoError(t, err)
	assert.Empty(t, invalid)
	assert.Equal(t, "ดินถล่ม", layout.Sheet)
	require.Len(t, rows, 2)
	want := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, rows[0].Date)
	assert.Equal(t, want, rows[1].Date)
}

func TestLoad_CSV(t *testing.T) {
	dir := t.TempDir()
	content := "date,province,district\n2024-05-03,เชียงใหม่,แม่ริม\n"

	utf8Path := filepath.Join(dir, "utf8.csv")
	require.NoError(t, os.WriteFile(utf8Path, []byte("\ufeff"+content), 0o600))

	legacy, err := charmap.Windows874.NewEncoder().String(content)
	require.NoError(t, err)
	legacyPath := filepath.Join(dir, "legacy.csv")
	require.NoError(t, os.WriteFile(legacyPath, []byte(legacy), 0o600))

	for _, path := range []string{utf8Path, legacyPath} {
		sheets, err := Load(path)
		require.NoError(t, err)
		require.Len(t, sheets, 1)
		assert.Equal(t, []string{"date", "province", "district"}, sheets[0].Cells[0])
		assert.Equal(t, []string{"2024-05-03", "เชียงใหม่", "แม่ริม"}, sheets[0].Cells[1])
	}
}

func TestLoad_Unsupported(t *testing.T) {
	_, err := Load("incidents.ods")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFile)
	assert.ErrorIs(t, err, domain.ErrInputShape)
}
