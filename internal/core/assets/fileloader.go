package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/pkg/concurrent"
)

const loaderShards = 16

var (
	ErrUnsupportedFormat = errors.New("unsupported asset format")
	ErrBadLabel          = errors.New("asset label does not match kind")
)

type loadRecord struct {
	kind  Kind
	path  string
	state LoadState
	err   error
	size  int
}

type loaderShard struct {
	mu      sync.RWMutex
	records map[Handle]*loadRecord
}

// FileLoader reads assets from a filesystem on a bounded worker pool and
// validates them by kind. Load state is held in xxhash-selected shards so
// State never contends with unrelated loads.
type FileLoader struct {
	fsys   fs.FS
	pool   *concurrent.Pool
	logger log.Log
	seq    atomic.Uint64
	shards [loaderShards]loaderShard

	// backlog holds loads the pool queue had no room for, oldest first.
	backlogMu sync.Mutex
	backlog   []Handle
}

var _ Loader = (*FileLoader)(nil)

func NewFileLoader(ctx context.Context, fsys fs.FS, workers, queue int, logger log.Log) *FileLoader {
	l := &FileLoader{
		fsys:   fsys,
		pool:   concurrent.NewPool(ctx, workers, queue),
		logger: logger.With(log.Component("file_loader")),
	}
	for i := range l.shards {
		l.shards[i].records = make(map[Handle]*loadRecord)
	}
	return l
}

// Load registers the load and hands it to the pool. When the pool queue is
// full the load waits in a backlog and stays queued until a worker frees up.
// Loads issued after Close fail with ErrLoaderClosed.
func (l *FileLoader) Load(kind Kind, assetPath string) Handle {
	idx := xxhash.Sum64String(assetPath) % loaderShards
	h := Handle(l.seq.Add(1)<<8 | idx)

	rec := &loadRecord{kind: kind, path: assetPath, state: StateQueued}
	sh := &l.shards[idx]
	sh.mu.Lock()
	sh.records[h] = rec
	sh.mu.Unlock()

	l.backlogMu.Lock()
	l.backlog = append(l.backlog, h)
	l.backlogMu.Unlock()
	l.pump()
	return h
}

// Backlog reports how many loads wait for room in the pool queue.
func (l *FileLoader) Backlog() int {
	l.backlogMu.Lock()
	defer l.backlogMu.Unlock()
	return len(l.backlog)
}

// pump moves backlogged loads into the pool in order until the queue is full.
func (l *FileLoader) pump() {
	l.backlogMu.Lock()
	defer l.backlogMu.Unlock()

	for len(l.backlog) > 0 {
		h := l.backlog[0]
		err := l.pool.Submit(func(ctx context.Context) { l.run(ctx, h) })
		if errors.Is(err, concurrent.ErrQueueFull) {
			return
		}
		l.backlog = l.backlog[1:]
		if err != nil {
			l.finish(h, 0, fmt.Errorf("%w: %w", ErrLoaderClosed, err))
		}
	}
}

func (l *FileLoader) State(h Handle) (LoadState, error) {
	sh := l.shard(h)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.records[h]
	if !ok {
		return StateFailed, ErrUnknownHandle
	}
	return rec.state, rec.err
}

// Size returns the byte length of a loaded asset.
func (l *FileLoader) Size(h Handle) (int, bool) {
	sh := l.shard(h)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.records[h]
	if !ok || rec.state != StateLoaded {
		return 0, false
	}
	return rec.size, true
}

// Close waits for queued loads and stops the workers. Backlogged loads that
// never reached the pool fail with ErrLoaderClosed.
func (l *FileLoader) Close() error {
	err := l.pool.Close()
	l.pump()
	return err
}

// Abort cancels running loads. Every load that has not finished fails with
// ErrLoaderClosed.
func (l *FileLoader) Abort() error {
	err := l.pool.Abort()
	l.pump()
	return err
}

func (l *FileLoader) shard(h Handle) *loaderShard {
	return &l.shards[uint64(h)&0xff]
}

func (l *FileLoader) run(ctx context.Context, h Handle) {
	sh := l.shard(h)
	sh.mu.Lock()
	rec, ok := sh.records[h]
	if ok {
		rec.state = StateLoading
	}
	sh.mu.Unlock()
	if !ok {
		return
	}

	if err := ctx.Err(); err != nil {
		l.finish(h, 0, fmt.Errorf("%w: %w", ErrLoaderClosed, err))
		return
	}

	size, err := l.read(rec.kind, rec.path)
	l.finish(h, size, err)
	l.pump()
}

func (l *FileLoader) finish(h Handle, size int, err error) {
	sh := l.shard(h)
	sh.mu.Lock()
	rec, ok := sh.records[h]
	if ok {
		rec.size = size
		rec.err = err
		rec.state = StateLoaded
		if err != nil {
			rec.state = StateFailed
		}
	}
	sh.mu.Unlock()

	if ok && err != nil {
		l.logger.Debug("load failed", log.String("path", rec.path), log.Error(err))
	}
}

func (l *FileLoader) read(kind Kind, assetPath string) (int, error) {
	file, label := SplitLabel(assetPath)
	if err := checkLabel(kind, label); err != nil {
		return 0, fmt.Errorf("%q: %w", assetPath, err)
	}

	data, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		return 0, err
	}

	switch kind {
	case KindImage:
		if _, _, err = image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return 0, fmt.Errorf("decode image %q: %w", file, err)
		}
	case KindScene, KindAnimationClip, KindMesh:
		if err = checkGLTF(file, data); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return len(data), nil
}

// SplitLabel separates "models/a.glb#Scene0" into its file and label parts.
func SplitLabel(assetPath string) (file, label string) {
	if i := strings.IndexByte(assetPath, '#'); i >= 0 {
		return assetPath[:i], assetPath[i+1:]
	}
	return assetPath, ""
}

func checkLabel(kind Kind, label string) error {
	var prefix string
	switch kind {
	case KindImage:
		if label != "" {
			return ErrBadLabel
		}
		return nil
	case KindScene:
		prefix = "Scene"
	case KindAnimationClip:
		prefix = "Animation"
	case KindMesh:
		prefix = "Mesh"
	default:
		return ErrUnknownKind
	}
	if label == "" && kind != KindAnimationClip {
		return nil
	}
	if !strings.HasPrefix(label, prefix) {
		return ErrBadLabel
	}
	for _, c := range label[len(prefix):] {
		if c < '0' || c > '9' {
			return ErrBadLabel
		}
	}
	if len(label) == len(prefix) {
		return ErrBadLabel
	}
	return nil
}

func checkGLTF(file string, data []byte) error {
	switch strings.ToLower(path.Ext(file)) {
	case ".glb":
		if len(data) < 12 || string(data[:4]) != "glTF" {
			return fmt.Errorf("%w: %q is not a binary glTF", ErrUnsupportedFormat, file)
		}
	case ".gltf":
		if !json.Valid(data) {
			return fmt.Errorf("%w: %q is not valid glTF JSON", ErrUnsupportedFormat, file)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, file)
	}
	return nil
}
