package diagtap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventNamesBuiltin(t *testing.T) {
	var names = event_names_init("/nonexistent")
	assert.Equal(t, "LTE_RRC_STATE_CHANGE", names.name_of(1606))
	assert.Equal(t, "LTE_ML1_PHR_REPORT", names.name_of(1938))
	assert.Equal(t, "EVENT_2127", names.name_of(2127))
}

func TestEventNamesYamlMerge(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"events:\n  2127: NR5G_RRC_STATE_CHANGE\n  1606: OVERRIDDEN\n"), 0o644))

	var names = event_names_init(path)
	assert.Equal(t, "NR5G_RRC_STATE_CHANGE", names.name_of(2127))
	assert.Equal(t, "OVERRIDDEN", names.name_of(1606), "file entries win over built-ins")
	assert.Equal(t, "LTE_RRC_UL_MSG", names.name_of(1610), "untouched built-ins survive")
}
