package playback

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkSkews1/ai-vid-gen/captions"
	"github.com/MarkSkews1/ai-vid-gen/models"
)

// opLog records surface calls in order so tests can assert sequencing
// across the renderer and audio fakes.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

type fakeRenderer struct {
	log *opLog

	mu      sync.Mutex
	frame   int
	seeks   []int
	playing bool
}

func (r *fakeRenderer) SeekTo(frame int) {
	r.mu.Lock()
	r.frame = frame
	r.seeks = append(r.seeks, frame)
	r.mu.Unlock()
	r.log.add(fmt.Sprintf("renderer.seek:%d", frame))
}

func (r *fakeRenderer) CurrentFrame() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

func (r *fakeRenderer) Play() {
	r.mu.Lock()
	r.playing = true
	r.mu.Unlock()
	r.log.add("renderer.play")
}

func (r *fakeRenderer) Pause() {
	r.mu.Lock()
	r.playing = false
	r.mu.Unlock()
	r.log.add("renderer.pause")
}

func (r *fakeRenderer) setFrame(frame int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = frame
}

func (r *fakeRenderer) seekCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seeks)
}

type fakeAudio struct {
	log *opLog

	mu      sync.Mutex
	source  string
	current float64
	playing bool
	playErr error
}

func (a *fakeAudio) SetSource(url string) {
	a.mu.Lock()
	a.source = url
	a.current = 0
	a.mu.Unlock()
	a.log.add("audio.source:" + url)
}

func (a *fakeAudio) SetCurrentTime(seconds float64) {
	a.mu.Lock()
	a.current = seconds
	a.mu.Unlock()
	a.log.add("audio.setTime")
}

func (a *fakeAudio) CurrentTime() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *fakeAudio) Play() error {
	a.mu.Lock()
	err := a.playErr
	if err == nil {
		a.playing = true
	}
	a.mu.Unlock()
	a.log.add("audio.play")
	return err
}

func (a *fakeAudio) Pause() {
	a.mu.Lock()
	a.playing = false
	a.mu.Unlock()
	a.log.add("audio.pause")
}

func (a *fakeAudio) isPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

// fakeClock runs timers and tickers on simulated time.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Duration
	timers  []*fakeClockTimer
	tickers []*fakeClockTicker
}

type fakeClockTimer struct {
	clock    *fakeClock
	deadline time.Duration
	f        func()
	stopped  bool
	fired    bool
}

func (t *fakeClockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeClockTicker struct {
	ch chan time.Time
}

func (t *fakeClockTicker) C() <-chan time.Time { return t.ch }
func (t *fakeClockTicker) Stop()               {}

func newFakeClock() *fakeClock { return &fakeClock{} }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeClockTimer{clock: c, deadline: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeClockTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves simulated time forward, firing due timers.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.deadline <= c.now {
			t.fired = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
}

// Tick delivers one tick to every live ticker.
func (c *fakeClock) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tickers {
		select {
		case t.ch <- time.Time{}:
		default:
		}
	}
}

func sceneWith(audioURL string, seconds int) models.Scene {
	s := models.Scene{AudioURL: audioURL}
	if seconds > 0 {
		s.Captions = []captions.Segment{
			{Text: "narration", Start: 0, End: seconds * 1000},
		}
	}
	return s
}

func newTestSync(scenes []models.Scene) (*Synchronizer, *fakeRenderer, *fakeAudio, *fakeClock) {
	log := &opLog{}
	renderer := &fakeRenderer{log: log}
	audio := &fakeAudio{log: log}
	clock := newFakeClock()
	s := NewSynchronizer(scenes, renderer, audio, WithClock(clock))
	return s, renderer, audio, clock
}

func TestNewSynchronizerLoadsFirstScene(t *testing.T) {
	_, _, audio, _ := newTestSync([]models.Scene{
		sceneWith("a.mp3", 7),
		sceneWith("b.mp3", 6),
	})
	assert.Equal(t, "a.mp3", audio.source)
}

func TestPlayStartsBothSurfaces(t *testing.T) {
	s, renderer, audio, _ := newTestSync([]models.Scene{sceneWith("a.mp3", 7)})

	require.NoError(t, s.Play())
	assert.True(t, s.IsPlaying())
	assert.True(t, audio.isPlaying())
	assert.True(t, renderer.playing)
	assert.Equal(t, []int{0}, renderer.seeks)
}

func TestPlayBlockedAudioLeavesStateValid(t *testing.T) {
	s, renderer, audio, _ := newTestSync([]models.Scene{sceneWith("a.mp3", 7)})
	audio.playErr = errors.New("NotAllowedError")

	err := s.Play()
	require.ErrorIs(t, err, ErrAudioBlocked)
	assert.False(t, s.IsPlaying())
	assert.False(t, renderer.playing)

	// A later user-initiated play succeeds from the same position.
	audio.playErr = nil
	require.NoError(t, s.Play())
	assert.True(t, s.IsPlaying())
}

func TestTimeUpdateCorrectsLargeDrift(t *testing.T) {
	s, renderer, _, _ := newTestSync([]models.Scene{sceneWith("a.mp3", 7)})
	require.NoError(t, s.Play())
	before := renderer.seekCount()

	// Renderer has drifted 4 frames ahead of the 2.0s target (frame 60).
	renderer.setFrame(64)
	s.HandleTimeUpdate(2.0)

	assert.Equal(t, before+1, renderer.seekCount())
	assert.Equal(t, 60, renderer.CurrentFrame())
	assert.InDelta(t, 2.0, s.Elapsed(), 1e-9)
}

func TestTimeUpdateIgnoresSmallDrift(t *testing.T) {
	s, renderer, _, _ := newTestSync([]models.Scene{sceneWith("a.mp3", 7)})
	require.NoError(t, s.Play())
	before := renderer.seekCount()

	// One frame off is within tolerance; correcting it would cause jitter.
	renderer.setFrame(61)
	s.HandleTimeUpdate(2.0)

	assert.Equal(t, before, renderer.seekCount())
	assert.Equal(t, 61, renderer.CurrentFrame())
}

func TestTimeUpdateCrossesSceneBoundary(t *testing.T) {
	s, renderer, audio, _ := newTestSync([]models.Scene{
		sceneWith("a.mp3", 7),
		sceneWith("b.mp3", 6),
	})
	require.NoError(t, s.Play())

	s.HandleTimeUpdate(7.2)

	pos := s.Position()
	assert.Equal(t, 1, pos.Index)
	assert.InDelta(t, 0.2, pos.Offset, 1e-9)
	assert.Equal(t, "b.mp3", audio.source)
	assert.True(t, audio.isPlaying())

	// The renderer must land on the new scene's frame before its audio
	// starts, so no stale frame shows.
	ops := renderer.log.list()
	seekIdx, sourceIdx := -1, -1
	for i, op := range ops {
		if op == fmt.Sprintf("renderer.seek:%d", frameAt(7.2)) && seekIdx == -1 {
			seekIdx = i
		}
		if op == "audio.source:b.mp3" {
			sourceIdx = i
		}
	}
	require.NotEqual(t, -1, seekIdx)
	require.NotEqual(t, -1, sourceIdx)
	assert.Less(t, seekIdx, sourceIdx)
}

func TestAudioEndedAdvancesToNextScene(t *testing.T) {
	s, _, audio, _ := newTestSync([]models.Scene{
		sceneWith("a.mp3", 7),
		sceneWith("b.mp3", 6),
	})
	require.NoError(t, s.Play())

	s.HandleAudioEnded()

	pos := s.Position()
	assert.Equal(t, 1, pos.Index)
	assert.Zero(t, pos.Offset)
	assert.InDelta(t, 7, pos.CumulativeBefore, 1e-9)
	assert.Equal(t, "b.mp3", audio.source)
	assert.True(t, s.IsPlaying())
}

func TestAudioEndedOnLastSceneStopsPlayback(t *testing.T) {
	s, _, audio, _ := newTestSync([]models.Scene{sceneWith("a.mp3", 7)})
	require.NoError(t, s.Play())

	s.HandleAudioEnded()

	assert.False(t, s.IsPlaying())
	assert.False(t, audio.isPlaying())
	assert.InDelta(t, 7, s.Elapsed(), 1e-9)
	assert.Equal(t, 0, s.Position().Index)
}

func TestSilentSceneAutoAdvances(t *testing.T) {
	s, _, audio, clock := newTestSync([]models.Scene{
		sceneWith("", 0), // no audio, fallback duration
		sceneWith("b.mp3", 6),
	})
	require.NoError(t, s.Play())
	assert.False(t, audio.isPlaying())

	clock.Advance(4 * time.Second)
	assert.Equal(t, 0, s.Position().Index)

	clock.Advance(1 * time.Second)
	assert.Equal(t, 1, s.Position().Index)
	assert.Equal(t, "b.mp3", audio.source)
	assert.True(t, audio.isPlaying())
}

func TestPauseCancelsAutoAdvance(t *testing.T) {
	s, _, _, clock := newTestSync([]models.Scene{
		sceneWith("", 0),
		sceneWith("b.mp3", 6),
	})
	require.NoError(t, s.Play())

	s.Pause()
	clock.Advance(time.Minute)

	assert.False(t, s.IsPlaying())
	assert.Equal(t, 0, s.Position().Index)
}

func TestSeekWhilePaused(t *testing.T) {
	s, renderer, audio, _ := newTestSync([]models.Scene{
		sceneWith("a.mp3", 7),
		sceneWith("b.mp3", 6),
	})

	s.Seek(9.5)

	pos := s.Position()
	assert.Equal(t, 1, pos.Index)
	assert.InDelta(t, 2.5, pos.Offset, 1e-9)
	assert.Equal(t, "b.mp3", audio.source)
	assert.InDelta(t, 2.5, audio.CurrentTime(), 1e-9)
	assert.Equal(t, frameAt(9.5), renderer.CurrentFrame())
	// Paused seeks load but never start audio.
	assert.False(t, audio.isPlaying())
}

func TestSeekClamps(t *testing.T) {
	s, _, _, _ := newTestSync([]models.Scene{
		sceneWith("a.mp3", 7),
		sceneWith("b.mp3", 6),
	})

	s.Seek(-3)
	assert.InDelta(t, 0, s.Elapsed(), 1e-9)

	s.Seek(1000)
	assert.InDelta(t, 13, s.Elapsed(), 1e-9)
	assert.Equal(t, 1, s.Position().Index)
}

func TestPeriodicDriftCheck(t *testing.T) {
	s, renderer, _, clock := newTestSync([]models.Scene{sceneWith("a.mp3", 7)})
	require.NoError(t, s.Play())
	before := renderer.seekCount()

	renderer.setFrame(50)
	clock.Tick()

	assert.Eventually(t, func() bool {
		return renderer.seekCount() == before+1 && renderer.CurrentFrame() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestPeriodicDriftCheckWithinTolerance(t *testing.T) {
	s, renderer, _, clock := newTestSync([]models.Scene{sceneWith("a.mp3", 7)})
	require.NoError(t, s.Play())
	before := renderer.seekCount()

	renderer.setFrame(2)
	clock.Tick()
	clock.Tick()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, renderer.seekCount())
}

func TestActiveCaption(t *testing.T) {
	scene := models.Scene{
		AudioURL: "a.mp3",
		Captions: []captions.Segment{
			{Text: "first part", Start: 0, End: 2000},
			{Text: "second part", Start: 2500, End: 6000},
		},
	}
	s, _, _, _ := newTestSync([]models.Scene{scene})

	s.Seek(1.0)
	seg, ok := s.ActiveCaption()
	require.True(t, ok)
	assert.Equal(t, "first part", seg.Text)

	s.Seek(2.2) // silence between segments
	_, ok = s.ActiveCaption()
	assert.False(t, ok)

	s.Seek(3.0)
	seg, ok = s.ActiveCaption()
	require.True(t, ok)
	assert.Equal(t, "second part", seg.Text)
}

func TestTotalDuration(t *testing.T) {
	s, _, _, _ := newTestSync([]models.Scene{
		sceneWith("a.mp3", 7),
		sceneWith("", 0),
		sceneWith("b.mp3", 6),
	})
	assert.Equal(t, 18, s.TotalDuration())
}
