package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldstream/internal/core/observability/log"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))))
	return buf.Bytes()
}

func glbBytes() []byte {
	return append([]byte("glTF"), 2, 0, 0, 0, 12, 0, 0, 0)
}

func testFS(t *testing.T) fstest.MapFS {
	return fstest.MapFS{
		"textures/gravier_16px.png":     {Data: pngBytes(t)},
		"textures/broken.png":           {Data: []byte("nope")},
		"models/spike_ling_0.glb":       {Data: glbBytes()},
		"models/deco/stalagmite.gltf":   {Data: []byte(`{"asset":{"version":"2.0"}}`)},
		"models/deco/not_a_model.obj":   {Data: []byte("o cube")},
		"models/deco/broken_binary.glb": {Data: []byte("GLTF....")},
	}
}

func waitTerminal(t *testing.T, l *FileLoader, h Handle) (LoadState, error) {
	t.Helper()
	var (
		state LoadState
		err   error
	)
	require.Eventually(t, func() bool {
		state, err = l.State(h)
		return state.Terminal()
	}, time.Second, time.Millisecond)
	return state, err
}

func TestFileLoader_Loads(t *testing.T) {
	l := NewFileLoader(context.Background(), testFS(t), 2, 16, log.Nop())
	defer l.Close()

	cases := []struct {
		name string
		kind Kind
		path string
		want LoadState
	}{
		{"png", KindImage, "textures/gravier_16px.png", StateLoaded},
		{"bad png", KindImage, "textures/broken.png", StateFailed},
		{"missing", KindImage, "textures/missing.png", StateFailed},
		{"glb scene", KindScene, "models/spike_ling_0.glb#Scene0", StateLoaded},
		{"glb clip", KindAnimationClip, "models/spike_ling_0.glb#Animation1", StateLoaded},
		{"clip without label", KindAnimationClip, "models/spike_ling_0.glb", StateFailed},
		{"wrong label", KindScene, "models/spike_ling_0.glb#Animation0", StateFailed},
		{"gltf json", KindScene, "models/deco/stalagmite.gltf", StateLoaded},
		{"unsupported", KindMesh, "models/deco/not_a_model.obj", StateFailed},
		{"bad magic", KindScene, "models/deco/broken_binary.glb#Scene0", StateFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := l.Load(tc.kind, tc.path)
			state, err := waitTerminal(t, l, h)
			assert.Equal(t, tc.want, state)
			if tc.want == StateFailed {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileLoader_SizeAndUnknownHandle(t *testing.T) {
	fsys := testFS(t)
	l := NewFileLoader(context.Background(), fsys, 1, 4, log.Nop())
	defer l.Close()

	h := l.Load(KindScene, "models/spike_ling_0.glb#Scene0")
	_, err := waitTerminal(t, l, h)
	require.NoError(t, err)

	size, ok := l.Size(h)
	require.True(t, ok)
	assert.Equal(t, len(fsys["models/spike_ling_0.glb"].Data), size)

	state, err := l.State(Handle(12345 << 8))
	assert.Equal(t, StateFailed, state)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestFileLoader_ClosedRejectsLoads(t *testing.T) {
	l := NewFileLoader(context.Background(), testFS(t), 1, 1, log.Nop())
	require.NoError(t, l.Close())

	h := l.Load(KindImage, "textures/gravier_16px.png")
	state, err := l.State(h)
	assert.Equal(t, StateFailed, state)
	assert.Error(t, err)
}

func TestFileLoader_WithRegistry(t *testing.T) {
	l := NewFileLoader(context.Background(), testFS(t), 4, 32, log.Nop())
	defer l.Close()
	r := NewRegistry(l, Options{PollInterval: time.Millisecond, WaitTimeout: time.Second}, log.Nop())

	s := r.NewSession()
	_, err := r.Request(s, KindImage, "textures/gravier_16px.png")
	require.NoError(t, err)
	_, err = r.Request(s, KindScene, "models/spike_ling_0.glb#Scene0")
	require.NoError(t, err)
	_, err = r.Request(s, KindImage, "textures/missing.png")
	require.NoError(t, err)

	res, err := r.WaitReady(context.Background(), s)
	assert.ErrorIs(t, err, ErrAssetsFailed)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "textures/missing.png", res.Failed[0].Path)
}

func TestFileLoader_FullQueueDelaysInsteadOfFailing(t *testing.T) {
	fsys := fstest.MapFS{}
	catalog := make([]CatalogEntry, 20)
	for i := range catalog {
		name := fmt.Sprintf("models/m%d.glb", i)
		fsys[name] = &fstest.MapFile{Data: glbBytes()}
		catalog[i] = CatalogEntry{Kind: KindScene, Path: name + "#Scene0"}
	}

	l := NewFileLoader(context.Background(), fsys, 1, 2, log.Nop())
	defer l.Close()
	r := NewRegistry(l, Options{PollInterval: time.Millisecond, WaitTimeout: 5 * time.Second}, log.Nop())

	res, err := r.Preload(context.Background(), catalog)
	require.NoError(t, err)
	assert.Empty(t, res.Failed)
	assert.Equal(t, 20, res.Tracked)
	assert.Zero(t, l.Backlog())

	ticket, err := r.Request(r.NewSession(), KindScene, "models/m2.glb#Scene0")
	require.NoError(t, err)
	assert.Equal(t, StatusResident, ticket.Status)
	state, err := r.State(ticket.Ref)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, state)
}

// gatedFS blocks reads of one file until release is closed.
type gatedFS struct {
	fs.FS
	gated   string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedFS) Open(name string) (fs.File, error) {
	if name == g.gated {
		close(g.entered)
		<-g.release
	}
	return g.FS.Open(name)
}

func TestFileLoader_AbortFailsUnfinishedLoads(t *testing.T) {
	fsys := &gatedFS{
		FS:      testFS(t),
		gated:   "models/spike_ling_0.glb",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	l := NewFileLoader(context.Background(), fsys, 1, 1, log.Nop())

	running := l.Load(KindScene, "models/spike_ling_0.glb#Scene0")
	<-fsys.entered
	queued := l.Load(KindImage, "textures/gravier_16px.png")
	backlogged := []Handle{
		l.Load(KindScene, "models/deco/stalagmite.gltf"),
		l.Load(KindImage, "textures/broken.png"),
	}
	assert.Equal(t, 2, l.Backlog())

	time.AfterFunc(20*time.Millisecond, func() { close(fsys.release) })
	require.NoError(t, l.Abort())

	state, err := l.State(running)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, state)

	for _, h := range append([]Handle{queued}, backlogged...) {
		state, err = l.State(h)
		assert.Equal(t, StateFailed, state)
		assert.ErrorIs(t, err, ErrLoaderClosed)
	}
	assert.Zero(t, l.Backlog())
}

func TestSplitLabel(t *testing.T) {
	file, label := SplitLabel("models/test_runner.glb#Animation1")
	assert.Equal(t, "models/test_runner.glb", file)
	assert.Equal(t, "Animation1", label)

	file, label = SplitLabel("textures/gravier_16px.png")
	assert.Equal(t, "textures/gravier_16px.png", file)
	assert.Empty(t, label)
}
