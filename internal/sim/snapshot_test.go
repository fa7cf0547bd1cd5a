package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "teacli/internal/errors"
)

func openTestSession(t *testing.T) Session {
	t.Helper()
	conn := NewSnapshotConnector(nil)
	sess, err := conn.Connect(context.Background(), filepath.Join("testdata", "flowsheet.json"))
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestSnapshotConnector_Connect_Missing(t *testing.T) {
	conn := NewSnapshotConnector(nil)
	_, err := conn.Connect(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConnection))
}

func TestSnapshotConnector_Connect_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	conn := NewSnapshotConnector(nil)
	_, err := conn.Connect(context.Background(), path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConnection))
}

func TestSnapshotSession_ReadFloat(t *testing.T) {
	sess := openTestSession(t)

	temp, err := sess.ReadFloat(StreamPropertyPath("BFG", PropTemperature))
	require.NoError(t, err)
	assert.Equal(t, 35.0, temp)

	_, err = sess.ReadFloat(StreamPropertyPath("BFG", "ENTHALPY"))
	assert.ErrorIs(t, err, ErrPathNotFound)

	_, err = sess.ReadFloat(BlockTypePath("RX-1"))
	assert.ErrorIs(t, err, ErrTypeMismatch, "TYPE holds a string")
}

func TestSnapshotSession_ReadString(t *testing.T) {
	sess := openTestSession(t)

	typ, err := sess.ReadString(BlockTypePath("RX-1"))
	require.NoError(t, err)
	assert.Equal(t, "RSTOIC", typ)

	_, err = sess.ReadString(StreamPropertyPath("BFG", PropPressure))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestSnapshotSession_Children(t *testing.T) {
	sess := openTestSession(t)

	streams, err := sess.Children(StreamsRoot())
	require.NoError(t, err)
	assert.Equal(t, []string{"BFG", "MEOH1", "RXN-OUT"}, streams)

	blocks, err := sess.Children(BlocksRoot())
	require.NoError(t, err)
	assert.Equal(t, []string{"E-101", "MC1", "RX-1"}, blocks)

	comps, err := sess.Children(MoleFracRoot("MEOH1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"CH3OH", "H2O"}, comps)

	inlets, err := sess.Children(BlockInletPortPath("RX-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"BFG"}, inlets)
}

func TestSnapshotSession_Children_AbsentSubtree(t *testing.T) {
	sess := openTestSession(t)

	_, err := sess.Children(MoleFracRoot("NO-SUCH-STREAM"))
	assert.ErrorIs(t, err, ErrPathNotFound)

	leaf := StreamPropertyPath("BFG", PropTemperature)
	children, err := sess.Children(leaf)
	require.NoError(t, err, "a leaf node is present, just childless")
	assert.Empty(t, children)
}

func TestSnapshotSession_Children_EmptyFlowsheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"EMPTY","nodes":{}}`), 0o644))

	conn := NewSnapshotConnector(nil)
	sess, err := conn.Connect(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	_, err = sess.Children(StreamsRoot())
	assert.ErrorIs(t, err, ErrPathNotFound)

	_, err = sess.Children(BlocksRoot())
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestSnapshotSession_Close(t *testing.T) {
	sess := openTestSession(t)
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close(), "close is idempotent")

	_, err := sess.ReadFloat(StreamPropertyPath("BFG", PropTemperature))
	assert.ErrorIs(t, err, ErrNotConnected)
}
