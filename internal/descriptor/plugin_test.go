package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_PluginDescriptor_HasPlug(t *testing.T) {
	assert.True(t, PluginDescriptor{Plug: InterfaceDescriptor{ID: "root"}}.HasPlug())
	assert.False(t, PluginDescriptor{}.HasPlug())
}

func Test_PluginDescriptor_SocketByInterfaceID(t *testing.T) {
	p := PluginDescriptor{
		Sockets: []InterfaceDescriptor{
			{ID: "first"},
			{ID: "second"},
		},
	}

	got, ok := p.SocketByInterfaceID("second")
	assert.True(t, ok)
	assert.Equal(t, InterfaceID("second"), got.ID)

	_, ok = p.SocketByInterfaceID("missing")
	assert.False(t, ok)
}
