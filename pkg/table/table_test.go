package table

import (
	"strings"
	"testing"

	"github.com/quarry-data/quarry/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanColumnName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Patient ID", "patient_id"},
		{"already clean", "patient_id", "patient_id"},
		{"punctuation stripped", "OriginalImage[Width", "originalimagewidth"},
		{"bracket pairs", "OriginalImagePixelSpacing[x", "originalimagepixelspacingx"},
		{"multiple spaces", "Follow  Up   #", "follow_up"},
		{"leading trailing space", "  View Position  ", "view_position"},
		{"empty", "", ""},
		{"symbols only", "!@#$%", ""},
		{"mixed case", "Finding Labels", "finding_labels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanColumnName(tt.in))
		})
	}
}

func TestCleanColumnNameIdempotent(t *testing.T) {
	inputs := []string{"Patient ID", "Follow-up #", "  A  B  ", "", "x__y", "OriginalImage[Width"}
	for _, in := range inputs {
		once := CleanColumnName(in)
		assert.Equal(t, once, CleanColumnName(once), "normalizing %q twice diverged", in)
	}
}

func TestFromCSV(t *testing.T) {
	src := "Patient ID,Patient Age,View Position\n1,50,PA\n2,N/A,AP\n"

	tbl, err := FromCSV(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, 3, tbl.NumCols())

	cols := tbl.Columns()
	assert.Equal(t, "Patient ID", cols[0].Name)
	assert.Equal(t, []string{"1", "2"}, cols[0].Text)
	assert.Equal(t, []string{"50", "N/A"}, cols[1].Text)
	assert.Equal(t, []string{"PA", "AP"}, cols[2].Text)
}

func TestFromCSVEmpty(t *testing.T) {
	_, err := FromCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRead))
}

func TestFromCSVRaggedRow(t *testing.T) {
	_, err := FromCSV(strings.NewReader("a,b\n1,2\n3\n"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRead))
}

func TestFromCSVHeaderOnly(t *testing.T) {
	tbl, err := FromCSV(strings.NewReader("a,b,c\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, 3, tbl.NumCols())
}

func TestNormalizeNames(t *testing.T) {
	tbl, err := FromCSV(strings.NewReader("Patient ID,Follow-up #\n1,0\n"))
	require.NoError(t, err)

	require.NoError(t, tbl.NormalizeNames())
	assert.Equal(t, "patient_id", tbl.Columns()[0].Name)
	assert.Equal(t, "followup", tbl.Columns()[1].Name)
	assert.NotNil(t, tbl.Column("patient_id"))
}

func TestNormalizeNamesCollision(t *testing.T) {
	tbl, err := FromCSV(strings.NewReader("Patient ID,patient_id\n1,2\n"))
	require.NoError(t, err)

	err = tbl.NormalizeNames()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestCategories(t *testing.T) {
	c := &Column{
		Name: "view_position",
		Kind: KindCategorical,
		Text: []string{"PA", "AP", "PA", "AP", "PA"},
	}
	assert.Equal(t, []string{"PA", "AP"}, c.Categories())
}

func TestCategoriesSkipsNulls(t *testing.T) {
	c := &Column{
		Name:  "gender",
		Kind:  KindCategorical,
		Text:  []string{"M", "", "F"},
		Valid: []bool{true, false, true},
	}
	assert.Equal(t, []string{"M", "F"}, c.Categories())
}
