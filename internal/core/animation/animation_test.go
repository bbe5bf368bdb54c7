package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/events"
	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/scene"
)

// clipMap serves clips as loaded; refs at or above failedRef report failed.
type clipMap map[string]assets.Ref

const failedRef assets.Ref = 100

func (m clipMap) Lookup(path assets.Key) (assets.Ref, bool) {
	ref, ok := m[path]
	return ref, ok
}

func (m clipMap) State(ref assets.Ref) (assets.LoadState, error) {
	if ref >= failedRef {
		return assets.StateFailed, nil
	}
	return assets.StateLoaded, nil
}

// loopParents is a parent index with a cycle the scene graph would reject.
type loopParents map[scene.EntityID]scene.EntityID

func (p loopParents) Parent(id scene.EntityID) (scene.EntityID, bool) {
	parent, ok := p[id]
	return parent, ok
}

// spawnModel builds top -> scene -> armature and tags the armature animated.
func spawnModel(t *testing.T, g scene.Graph, name string, tag scene.Tag) (top, armature scene.EntityID) {
	t.Helper()
	top = g.Spawn(name)
	require.NoError(t, g.AddTag(top, tag))
	root := g.Spawn(name + ".scene")
	require.NoError(t, g.SetParent(root, top))
	armature = g.Spawn(name + ".armature")
	require.NoError(t, g.SetParent(armature, root))
	require.NoError(t, g.AddTag(armature, scene.TagAnimated))
	return top, armature
}

func collect(t *testing.T, b bus.EventBus, typ string) *[]bus.Event {
	t.Helper()
	var got []bus.Event
	_, err := b.Subscribe(typ, func(e bus.Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	return &got
}

func TestTopClimbsToRoot(t *testing.T) {
	g := scene.NewWorld()
	top, armature := spawnModel(t, g, "player", scene.TagPlayer)

	got, err := Top(g, armature)
	require.NoError(t, err)
	assert.Equal(t, top, got)

	got, err = Top(g, top)
	require.NoError(t, err)
	assert.Equal(t, top, got)
}

func TestTopDetectsCycle(t *testing.T) {
	a, b, c := scene.EntityID(1), scene.EntityID(2), scene.EntityID(3)
	_, err := Top(loopParents{a: b, b: c, c: a}, a)
	require.ErrorIs(t, err, ErrParentCycle)
}

func TestLinkerFirstWins(t *testing.T) {
	g := scene.NewWorld()
	b := bus.New()
	dupes := collect(t, b, events.TypeLinkDuplicate)
	created := collect(t, b, events.TypeLinkCreated)
	l := NewLinker(g, b, log.Nop())

	top, first := spawnModel(t, g, "mob", scene.TagMob)
	second := g.Spawn("mob.armature2")
	require.NoError(t, g.SetParent(second, top))
	require.NoError(t, g.AddTag(second, scene.TagAnimated))

	link, err := l.Link(first)
	require.NoError(t, err)
	assert.Equal(t, Link{Top: top, Animated: first}, link)

	_, err = l.Link(second)
	require.ErrorIs(t, err, ErrDuplicateLink)

	got, ok := l.Lookup(top)
	require.True(t, ok)
	assert.Equal(t, first, got)
	assert.Len(t, *created, 1)
	require.Len(t, *dupes, 1)
	assert.Equal(t, events.LinkDuplicate{Top: top, Existing: first, Rejected: second}, (*dupes)[0].Data())

	assert.Equal(t, []Link{link}, l.Fresh())
	assert.Empty(t, l.Fresh())
}

func TestLinkerScan(t *testing.T) {
	g := scene.NewWorld()
	l := NewLinker(g, nil, log.Nop())

	player, _ := spawnModel(t, g, "player", scene.TagPlayer)
	mob, _ := spawnModel(t, g, "mob", scene.TagMob)

	require.NoError(t, l.Scan())
	assert.Equal(t, 2, l.Len())
	assert.Len(t, l.Fresh(), 2)

	// Already linked armatures are not relinked.
	require.NoError(t, l.Scan())
	assert.Empty(t, l.Fresh())

	require.NoError(t, g.Despawn(mob))
	require.NoError(t, l.Scan())
	assert.Equal(t, 1, l.Len())
	_, ok := l.Lookup(player)
	assert.True(t, ok)
}

func TestTypesObserve(t *testing.T) {
	g := scene.NewWorld()
	types := NewTypes()
	player, _ := spawnModel(t, g, "player", scene.TagPlayer)
	mob, _ := spawnModel(t, g, "mob", scene.TagMob)

	assert.Equal(t, 2, types.Observe(g))
	assert.Zero(t, types.Observe(g))

	typ, ok := types.Get(player)
	require.True(t, ok)
	assert.Equal(t, TypePlayer, typ)
	typ, ok = types.Get(mob)
	require.True(t, ok)
	assert.Equal(t, TypeLing, typ)

	require.NoError(t, g.Despawn(mob))
	types.Observe(g)
	assert.Equal(t, 1, types.Len())
}

func TestDirectorPlaysConfiguredClips(t *testing.T) {
	g := scene.NewWorld()
	b := bus.New()
	started := collect(t, b, events.TypeClipStarted)
	cfg := DefaultConfig()
	clips := clipMap{cfg.Player.Clip: 7, cfg.Ling.Clip: 9}
	playback := NewMemoryPlayback(g)
	linker := NewLinker(g, b, log.Nop())
	director, err := NewDirector(cfg, g, linker, NewTypes(), clips, playback, b, log.Nop())
	require.NoError(t, err)

	_, playerArm := spawnModel(t, g, "player", scene.TagPlayer)
	_, mobArm := spawnModel(t, g, "mob", scene.TagMob)
	require.NoError(t, linker.Scan())
	require.NoError(t, director.Direct())

	got, ok := playback.Playing(playerArm)
	require.True(t, ok)
	assert.Equal(t, Playing{Clip: 7, Speed: 0.8, Loop: true}, got)
	got, ok = playback.Playing(mobArm)
	require.True(t, ok)
	assert.Equal(t, Playing{Clip: 9, Speed: 2, Loop: true}, got)
	assert.Len(t, *started, 2)
	assert.Zero(t, director.Waiting())

	// Links are only started once.
	require.NoError(t, linker.Scan())
	require.NoError(t, director.Direct())
	assert.Equal(t, 2, playback.Plays())
}

func TestDirectorWaitsForTypeAndClip(t *testing.T) {
	g := scene.NewWorld()
	cfg := DefaultConfig()
	clips := clipMap{}
	playback := NewMemoryPlayback(g)
	linker := NewLinker(g, nil, log.Nop())
	director, err := NewDirector(cfg, g, linker, NewTypes(), clips, playback, nil, log.Nop())
	require.NoError(t, err)

	// Untagged top: no type yet.
	top, arm := spawnModel(t, g, "prop", scene.TagProp)
	require.NoError(t, linker.Scan())
	require.NoError(t, director.Direct())
	assert.Equal(t, 1, director.Waiting())

	// Typed, but the clip was never requested.
	require.NoError(t, g.AddTag(top, scene.TagMob))
	require.NoError(t, director.Direct())
	assert.Equal(t, 1, director.Waiting())
	assert.Zero(t, playback.Plays())

	clips[cfg.Ling.Clip] = 4
	require.NoError(t, director.Direct())
	assert.Zero(t, director.Waiting())
	got, ok := playback.Playing(arm)
	require.True(t, ok)
	assert.Equal(t, assets.Ref(4), got.Clip)
}

func TestDirectorDropsFailedClips(t *testing.T) {
	g := scene.NewWorld()
	cfg := DefaultConfig()
	playback := NewMemoryPlayback(g)
	linker := NewLinker(g, nil, log.Nop())
	director, err := NewDirector(cfg, g, linker, NewTypes(), clipMap{cfg.Ling.Clip: failedRef}, playback, nil, log.Nop())
	require.NoError(t, err)

	spawnModel(t, g, "mob", scene.TagMob)
	require.NoError(t, linker.Scan())
	require.ErrorIs(t, director.Direct(), ErrClipFailed)
	assert.Zero(t, director.Waiting())
	assert.Zero(t, playback.Plays())
}

func TestDirectorDropsDespawnedLinks(t *testing.T) {
	g := scene.NewWorld()
	linker := NewLinker(g, nil, log.Nop())
	director, err := NewDirector(DefaultConfig(), g, linker, NewTypes(), clipMap{}, NewMemoryPlayback(g), nil, log.Nop())
	require.NoError(t, err)

	top, _ := spawnModel(t, g, "mob", scene.TagMob)
	require.NoError(t, linker.Scan())
	require.NoError(t, director.Direct())
	require.Equal(t, 1, director.Waiting())

	require.NoError(t, g.Despawn(top))
	require.NoError(t, director.Direct())
	assert.Zero(t, director.Waiting())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Ling.Speed = 0
	cfg.Player.Clip = ""
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "ling")
	assert.Contains(t, err.Error(), "player")
}
