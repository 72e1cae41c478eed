package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_PluginID_String(t *testing.T) {
	assert.Equal(t, "foo", PluginID("foo").String())
}

func Test_InterfaceID_String(t *testing.T) {
	assert.Equal(t, "bar", InterfaceID("bar").String())
}

func Test_SortPluginIDs(t *testing.T) {
	in := []PluginID{"zebra", "apple", "mango"}
	got := SortPluginIDs(in)

	assert.Equal(t, []PluginID{"apple", "mango", "zebra"}, got)
	assert.Equal(t, []PluginID{"zebra", "apple", "mango"}, in, "SortPluginIDs must not mutate its input")
}

func Test_SortPluginIDs_Empty(t *testing.T) {
	assert.Empty(t, SortPluginIDs(nil))
}
