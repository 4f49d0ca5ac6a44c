package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgate/flowgate/service/dao"
)

const orderDefinitions = `
id: order
name: Order Fulfilment
version: 2
processes:
  - id: main
    name: Main
    elements:
      - id: start
        type: startEvent
      - id: confirm
        name: Confirm Order
        type: serviceTask
elements:
  - id: collab-msg
    type: messageFlow
`

func TestService_Load(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "definitions")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "order.yaml"), []byte(orderDefinitions), 0o644))

	loader := New(tempDir)
	ctx := context.Background()

	defs, err := loader.Load(ctx, "order")
	require.NoError(t, err)
	assert.Equal(t, "order", defs.ID)
	assert.Equal(t, 2, defs.Version)
	require.NotNil(t, defs.Process("main"))
	require.NotNil(t, defs.Element("confirm"))
	assert.Equal(t, "Confirm Order", defs.Element("confirm").Name)
	assert.NotNil(t, defs.Element("collab-msg"))
	assert.Nil(t, defs.Element("nope"))

	// cached copy is reused until refreshed
	again, err := loader.Load(ctx, "order")
	require.NoError(t, err)
	assert.Same(t, defs, again)

	loader.Refresh("order")
	reloaded, err := loader.Load(ctx, "order")
	require.NoError(t, err)
	assert.NotSame(t, defs, reloaded)
}

func TestService_LoadMissing(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "definitions")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	_, err = New(tempDir).Load(context.Background(), "ghost")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestService_DecodeInvalid(t *testing.T) {
	_, err := New("").Decode([]byte("\t- not yaml"))
	assert.Error(t, err)
}
