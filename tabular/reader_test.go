package tabular_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"github.com/meritzGA/meritz-prize/prize"
	"github.com/meritzGA/meritz-prize/tabular"
)

const weeklyCSV = "사번,성명,실적\n1001,김철수,\"250,000\"\n1002,,NA\n"

func TestRead_CSV(t *testing.T) {
	// GIVEN: A UTF-8 CSV with a quoted amount, an empty cell and an NA cell
	// WHEN: It is read
	// THEN: Cells keep their raw text and missing cells are nil

	tbl, err := tabular.Read("weekly.csv", strings.NewReader(weeklyCSV))
	require.NoError(t, err)

	assert.Equal(t, "weekly.csv", tbl.Name)
	assert.Equal(t, []string{"사번", "성명", "실적"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "1001", tbl.Rows[0]["사번"])
	assert.Equal(t, "250,000", tbl.Rows[0]["실적"])
	assert.Nil(t, tbl.Rows[1]["성명"])
	assert.Nil(t, tbl.Rows[1]["실적"])
	assert.False(t, tbl.UploadedAt.IsZero())

	row, ok := tbl.First("사번", 1001.0)
	require.True(t, ok)
	assert.True(t, prize.ParseAmount(row["실적"]).Equal(prize.ParseAmount(250000)))
}

func TestRead_ByteOrderMarkAndPaddedHeaders(t *testing.T) {
	tbl, err := tabular.Read("bom.csv", strings.NewReader("\xef\xbb\xbf 사번 ,실적\n1,2\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"사번", "실적"}, tbl.Columns)
	assert.Equal(t, "1", tbl.Rows[0]["사번"])
}

func TestRead_TabSeparated(t *testing.T) {
	tbl, err := tabular.Read("weekly.txt", strings.NewReader("사번\t실적\n1001\t1,000\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"사번", "실적"}, tbl.Columns)
	assert.Equal(t, "1,000", tbl.Rows[0]["실적"])
}

func TestRead_EUCKR(t *testing.T) {
	// GIVEN: A CSV exported in CP949
	// WHEN: It is read
	// THEN: Korean headers and cells are decoded

	encoded, err := korean.EUCKR.NewEncoder().String(weeklyCSV)
	require.NoError(t, err)

	tbl, err := tabular.Read("legacy.csv", strings.NewReader(encoded))
	require.NoError(t, err)

	assert.Equal(t, []string{"사번", "성명", "실적"}, tbl.Columns)
	assert.Equal(t, "김철수", tbl.Rows[0]["성명"])
}

func TestRead_RejectsExcel(t *testing.T) {
	for _, name := range []string{"a.xlsx", "b.XLS", "c.xlsm"} {
		_, err := tabular.Read(name, strings.NewReader("PK"))
		assert.ErrorIs(t, err, tabular.ErrUnsupportedFormat, name)
	}
}

func TestRead_EmptyInput(t *testing.T) {
	_, err := tabular.Read("empty.csv", strings.NewReader(""))
	assert.Error(t, err)

	_, err = tabular.Read("header.csv", strings.NewReader("사번,실적\n"))
	assert.Error(t, err)
}

func TestReadFile_NamesTableAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "march.csv")
	require.NoError(t, os.WriteFile(path, []byte(weeklyCSV), 0o600))

	tbl, err := tabular.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "march.csv", tbl.Name)
	assert.Len(t, tbl.Rows, 2)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := tabular.ReadFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
