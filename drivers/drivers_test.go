package drivers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfits/fitsfile/driver"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return logrus.NewEntry(l)
}

func TestInitRegistersBuiltins(t *testing.T) {
	reg := driver.NewRegistry()
	require.NoError(t, Init(reg, testLog(), Options{}))

	assert.Equal(t, 6, reg.Len())

	for _, prefix := range []string{"file://", "mem://", "memkeep://", "stdin://", "stdout://", "compress://"} {
		_, err := reg.Lookup(prefix)
		assert.NoErrorf(t, err, "expected %s to be registered", prefix)
	}
}

func TestInitRegistersNetworkAndShmem(t *testing.T) {
	reg := driver.NewRegistry()
	require.NoError(t, Init(reg, testLog(), Options{Network: true, Shmem: true}))

	for _, prefix := range []string{
		"root://", "http://", "httpfile://", "httpcompress://",
		"ftp://", "ftpfile://", "ftpcompress://", "shmem://",
	} {
		_, err := reg.Lookup(prefix)
		assert.NoErrorf(t, err, "expected %s to be registered", prefix)
	}
}

func TestFileDriverRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newFileDriver(testLog())
	disp := driver.NewDispatch(d)

	path := filepath.Join(t.TempDir(), "test.fits")
	h, err := disp.Create(ctx, path)
	require.NoError(t, err)

	require.NoError(t, disp.Write(ctx, h, []byte("HELLO")))
	require.NoError(t, disp.Close(ctx, h))

	h2, err := disp.Open(ctx, path, driver.ReadOnly)
	require.NoError(t, err)
	defer disp.Close(ctx, h2)

	size, err := disp.Size(ctx, h2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	buf := make([]byte, 5)
	require.NoError(t, disp.Read(ctx, h2, buf))
	assert.Equal(t, "HELLO", string(buf))

	_ = os.Remove(path)
}

func TestMemDriverRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := NewMemDrivers(testLog())
	disp := driver.NewDispatch(mem.Mem)

	h, err := disp.Create(ctx, "mem://scratch")
	require.NoError(t, err)

	require.NoError(t, disp.Write(ctx, h, []byte("DATA")))
	require.NoError(t, disp.Seek(ctx, h, 0))

	buf := make([]byte, 4)
	require.NoError(t, disp.Read(ctx, h, buf))
	assert.Equal(t, "DATA", string(buf))
	require.NoError(t, disp.Close(ctx, h))
}

func TestMemKeepDriverStagedBufferSyncsBack(t *testing.T) {
	ctx := context.Background()
	mem := NewMemDrivers(testLog())
	disp := driver.NewDispatch(mem.MemKeep)

	var external []byte
	mem.StageBuffer(true, "memkeep://caller", []byte("abc"), false, &external)

	h, err := disp.Open(ctx, "memkeep://caller", driver.ReadWrite)
	require.NoError(t, err)

	require.NoError(t, disp.Seek(ctx, h, 3))
	require.NoError(t, disp.Write(ctx, h, []byte("def")))
	require.NoError(t, disp.Close(ctx, h))

	assert.Equal(t, "abcdef", string(external))
}

func TestStdoutDriverWritesThrough(t *testing.T) {
	ctx := context.Background()
	d := newStdoutDriver(testLog())
	disp := driver.NewDispatch(d)

	h, err := disp.Create(ctx, "stdout://")
	require.NoError(t, err)
	require.NoError(t, disp.Write(ctx, h, []byte("x")))
	require.NoError(t, disp.Close(ctx, h))
}

func TestRootDriverRegisteredButUnsupported(t *testing.T) {
	reg := driver.NewRegistry()
	require.NoError(t, reg.Register(newRootDriver(testLog())))

	d, err := reg.Lookup("root://")
	require.NoError(t, err)

	disp := driver.NewDispatch(d)
	_, err = disp.Open(context.Background(), "root://anything", driver.ReadOnly)
	assert.Error(t, err)
}
