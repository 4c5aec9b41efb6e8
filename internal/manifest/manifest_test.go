package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInward_GroupsByRef(t *testing.T) {
	csv := `BL_LR_IF,Batch_ID,Extra
BL-2,100,x
BL-1,200,y
BL-2,101,z
BL-1,201,
`
	entries, err := ParseInward(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Ref: "BL-2", BatchIDs: []string{"100", "101"}},
		{Ref: "BL-1", BatchIDs: []string{"200", "201"}},
	}, entries)
}

func TestParseInward_SkipsBlankRefs(t *testing.T) {
	csv := "Batch_ID,BL_LR_IF\n1,\n2,BL-9\n,BL-9\n"

	entries, err := ParseInward(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []Entry{{Ref: "BL-9", BatchIDs: []string{"2"}}}, entries)
}

func TestParseInward_MissingColumns(t *testing.T) {
	_, err := ParseInward(strings.NewReader("BL_LR_IF,Batch\nBL-1,1\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "CSV must contain BL_LR_IF and Batch_ID columns.")
}

func TestParseInward_EmptyInput(t *testing.T) {
	_, err := ParseInward(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestParseInward_HeaderOnly(t *testing.T) {
	_, err := ParseInward(strings.NewReader("BL_LR_IF,Batch_ID\n"))
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestParseMergeRequest_DistinctInOrder(t *testing.T) {
	csv := `FG_ID,InBound_BL_LR_IF
FG-1,BL-3
FG-2,BL-1
FG-3,BL-3
FG-4,BL-2
`
	refs, err := ParseMergeRequest(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []string{"BL-3", "BL-1", "BL-2"}, refs)
}

func TestParseMergeRequest_MissingColumns(t *testing.T) {
	_, err := ParseMergeRequest(strings.NewReader("FG_ID,BL_LR_IF\nFG-1,BL-1\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "CSV must contain FG_ID and InBound_BL_LR_IF columns.")
}
