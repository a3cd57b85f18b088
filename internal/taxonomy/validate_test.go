package taxonomy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBytes_AcceptsWellFormedDocument(t *testing.T) {
	require.NoError(t, ValidateBytes([]byte(testDoc)))
}

func TestValidateBytes_RejectsNonJSON(t *testing.T) {
	err := ValidateBytes([]byte("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestValidateBytes_RejectsEmptyName(t *testing.T) {
	const doc = `{"blocks": [{"name": "", "groups": []}]}`
	err := ValidateBytes([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema violation")
}

func TestValidateBytes_RejectsMissingAction(t *testing.T) {
	const doc = `{
	  "blocks": [
	    {"name": "А", "groups": [{"screen": "Экран", "functional": "Ф", "regular_actions": [{"step": 1}]}]}
	  ]
	}`
	err := ValidateBytes([]byte(doc))
	require.Error(t, err)
}

func TestValidateBytes_RejectsNegativeStep(t *testing.T) {
	const doc = `{
	  "blocks": [
	    {"name": "А", "groups": [{"screen": "Экран", "functional": "Ф", "regular_actions": [{"action": "Тап", "step": -1}]}]}
	  ]
	}`
	err := ValidateBytes([]byte(doc))
	require.Error(t, err)
}

func TestValidateBytes_AllowsExtraBookkeepingFields(t *testing.T) {
	const doc = `{
	  "total_combinations": 991,
	  "blocks": [
	    {"name": "А", "combination_count": 3, "groups": [{"screen": "Экран", "functional": "Ф", "regular_actions": [{"action": "Тап", "count": 12}]}]}
	  ]
	}`
	require.NoError(t, ValidateBytes([]byte(doc)))
}

func TestDuplicates_ReportsCrossBlockTriples(t *testing.T) {
	const docJSON = `{
	  "blocks": [
	    {"name": "А", "groups": [{"screen": "Экран", "functional": "Ф", "regular_actions": [{"action": "Тап"}]}]},
	    {"name": "Б", "groups": [{"screen": "Экран", "functional": "Ф", "cancel_actions": [{"action": "Тап"}]}]}
	  ]
	}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(docJSON), &doc))

	dups := Duplicates(&doc)
	require.Len(t, dups, 1)
	assert.Contains(t, dups[0], "А")
	assert.Contains(t, dups[0], "Б")
}

func TestDuplicates_DistinctScreensAreNotDuplicates(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(testDoc), &doc))
	assert.Empty(t, Duplicates(&doc))
}

func TestLoadBytes_EmptyBlocksFails(t *testing.T) {
	_, err := LoadBytes([]byte(`{"blocks": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no blocks")
}
