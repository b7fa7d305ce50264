package plot

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/spartan-farmer/pkg/config"
	"github.com/cuemby/spartan-farmer/pkg/piece"
	"github.com/cuemby/spartan-farmer/pkg/xcrypto"
)

func openTestPlot(t *testing.T) *Plot {
	t.Helper()
	dir := t.TempDir()
	opts := config.DefaultPlotOptions(dir, 0)
	p, err := OpenOrCreate(opts)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func randomPiece(rng *rand.Rand) piece.Piece {
	var p piece.Piece
	rng.Read(p[:])
	return p
}

func TestReadAfterWrite(t *testing.T) {
	p := openTestPlot(t)

	empty, err := p.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	rng := rand.New(rand.NewSource(0))
	encoded := randomPiece(rng)
	salt := [32]byte{1}

	require.NoError(t, p.WriteMany([]piece.Piece{encoded}, 0, salt))

	empty, err = p.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty)

	readBack, err := p.Read(0)
	require.NoError(t, err)
	assert.Equal(t, encoded, readBack)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	opts := config.DefaultPlotOptions(dir, 0)

	p, err := OpenOrCreate(opts)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(0))
	require.NoError(t, p.WriteMany([]piece.Piece{randomPiece(rng)}, 0, [32]byte{1}))
	p.Close()

	reopened, err := OpenOrCreate(opts)
	require.NoError(t, err)
	defer reopened.Close()

	empty, err := reopened.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestTagConsistency(t *testing.T) {
	p := openTestPlot(t)
	salt := [32]byte{9}
	rng := rand.New(rand.NewSource(0))

	const count = 64
	encodings := make([]piece.Piece, count)
	for i := range encodings {
		encodings[i] = randomPiece(rng)
	}
	require.NoError(t, p.WriteMany(encodings, 0, salt))

	for index, encoded := range encodings {
		tag := xcrypto.CreateTag(encoded[:], salt)
		target := tag
		entry, found, err := p.FindByRange(target, 0)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, uint64(index), entry.Index)
		assert.Equal(t, tag, entry.Tag)
	}
}

// plotWithRandomPieces plots n deterministic random pieces under salt
// and returns the handle, matching E1-E3's "fixed RNG seed = 0" setup.
func plotWithRandomPieces(t *testing.T, n int, salt [32]byte) *Plot {
	t.Helper()
	p := openTestPlot(t)

	rng := rand.New(rand.NewSource(0))
	encodings := make([]piece.Piece, n)
	for i := range encodings {
		encodings[i] = randomPiece(rng)
	}
	require.NoError(t, p.WriteMany(encodings, 0, salt))
	return p
}

func TestFindByRange_WrapLow(t *testing.T) {
	salt := [32]byte{1}
	p := plotWithRandomPieces(t, 1024, salt)

	target := [8]byte{0, 0, 0, 0, 0, 0, 0, 1}
	const rng = 0x00FFFFFFFFFFFFFF

	entry, found, err := p.FindByRange(target, rng)
	require.NoError(t, err)
	require.True(t, found)

	targetU64 := binary.BigEndian.Uint64(target[:])
	tagU64 := binary.BigEndian.Uint64(entry.Tag[:])
	half := uint64(rng) / 2
	assert.True(t, tagU64 >= ^uint64(0)-half+1 || tagU64 <= targetU64+half)
}

func TestFindByRange_WrapHigh(t *testing.T) {
	salt := [32]byte{1}
	p := plotWithRandomPieces(t, 1024, salt)

	target := [8]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe}
	const rng = 0x00FFFFFFFFFFFFFF

	entry, found, err := p.FindByRange(target, rng)
	require.NoError(t, err)
	require.True(t, found)

	targetU64 := binary.BigEndian.Uint64(target[:])
	tagU64 := binary.BigEndian.Uint64(entry.Tag[:])
	half := uint64(rng) / 2
	lower := targetU64 - half
	assert.True(t, tagU64 >= lower || tagU64 <= targetU64+half)
}

func TestFindByRange_Mid(t *testing.T) {
	salt := [32]byte{1}
	p := plotWithRandomPieces(t, 1024, salt)

	target := [8]byte{0xef, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	const rng = 0x00FFFFFFFFFFFFFF

	entry, found, err := p.FindByRange(target, rng)
	require.NoError(t, err)
	require.True(t, found)

	targetU64 := binary.BigEndian.Uint64(target[:])
	tagU64 := binary.BigEndian.Uint64(entry.Tag[:])
	half := uint64(rng) / 2
	assert.True(t, tagU64 >= targetU64-half && tagU64 <= targetU64+half)
}

func TestCommitmentRotation(t *testing.T) {
	p := openTestPlot(t)

	saltA := [32]byte{0xa}
	saltB := [32]byte{0xb}

	rng := rand.New(rand.NewSource(0))
	encodings := make([]piece.Piece, 32)
	for i := range encodings {
		encodings[i] = randomPiece(rng)
	}
	require.NoError(t, p.WriteMany(encodings, 0, saltA))

	tagUnderA := xcrypto.CreateTag(encodings[0][:], saltA)
	tagUnderB := xcrypto.CreateTag(encodings[0][:], saltB)

	require.NoError(t, p.CreateCommitment(saltB))
	require.NoError(t, p.RemoveCommitment(saltA))

	_, foundA, err := p.FindByRange(tagUnderA, 0)
	require.NoError(t, err)
	assert.False(t, foundA, "salt A's commitment should be gone")

	entry, foundB, err := p.FindByRange(tagUnderB, 0)
	require.NoError(t, err)
	require.True(t, foundB)
	assert.Equal(t, uint64(0), entry.Index)
}

func TestWriteMany_EmptyIsNoop(t *testing.T) {
	p := openTestPlot(t)
	require.NoError(t, p.WriteMany(nil, 0, [32]byte{}))

	empty, err := p.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestOnClose_FiresAfterDrain(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenOrCreate(config.DefaultPlotOptions(dir, 0))
	require.NoError(t, err)

	fired := make(chan struct{})
	p.OnClose(func() { close(fired) })

	p.Close()

	select {
	case <-fired:
	default:
		t.Fatal("OnClose callback did not fire")
	}
}

func TestOnClose_UnregisterDropsCallback(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenOrCreate(config.DefaultPlotOptions(dir, 0))
	require.NoError(t, err)

	fired := false
	id := p.OnClose(func() { fired = true })
	p.Unregister(id)

	p.Close()

	assert.False(t, fired, "unregistered callback must not fire")
}

func TestOnClose_UnregisterUnknownIDIsNoop(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenOrCreate(config.DefaultPlotOptions(dir, 0))
	require.NoError(t, err)

	fired := false
	p.OnClose(func() { fired = true })
	p.Unregister(HandlerID(999))

	p.Close()

	assert.True(t, fired, "unrelated callback should still fire")
}

func TestMethods_ReturnErrClosedAfterClose(t *testing.T) {
	p := openTestPlot(t)
	p.Close()

	_, err := p.IsEmpty()
	assert.ErrorIs(t, err, ErrClosed)

	_, err = p.Read(0)
	assert.ErrorIs(t, err, ErrClosed)

	_, _, err = p.FindByRange([8]byte{}, 1)
	assert.ErrorIs(t, err, ErrClosed)

	err = p.WriteMany([]piece.Piece{{}}, 0, [32]byte{1})
	assert.ErrorIs(t, err, ErrClosed)

	err = p.CreateCommitment([32]byte{1})
	assert.ErrorIs(t, err, ErrClosed)

	err = p.RemoveCommitment([32]byte{1})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWriteMany_RejectsWritesPastMaxPieces(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenOrCreate(config.DefaultPlotOptions(dir, 4))
	require.NoError(t, err)
	defer p.Close()

	rng := rand.New(rand.NewSource(0))
	encodings := make([]piece.Piece, 3)
	for i := range encodings {
		encodings[i] = randomPiece(rng)
	}

	require.NoError(t, p.WriteMany(encodings, 0, [32]byte{1}))

	err = p.WriteMany(encodings, 2, [32]byte{1})
	assert.ErrorIs(t, err, ErrPlotFull)
}

func TestPlotFileSizedByIndex(t *testing.T) {
	p := openTestPlot(t)

	rng := rand.New(rand.NewSource(0))
	const count = 16
	encodings := make([]piece.Piece, count)
	for i := range encodings {
		encodings[i] = randomPiece(rng)
	}
	require.NoError(t, p.WriteMany(encodings, 0, [32]byte{1}))

	info, err := p.file.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(count*piece.Size), info.Size())
}
