// Package playback keeps a continuously advancing logical playhead
// consistent across an audio element, a frame-based renderer and a caption
// cursor, despite the renderers having independent timing sources.
package playback

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MarkSkews1/ai-vid-gen/captions"
	"github.com/MarkSkews1/ai-vid-gen/models"
	"github.com/MarkSkews1/ai-vid-gen/timeline"
)

// FPS is the renderer's fixed frame rate.
const FPS = 30

const (
	// Drift thresholds, in frames. Event-driven updates correct tighter than
	// the periodic check; below the threshold the renderer's natural advance
	// is left alone to avoid visible jitter from over-correction.
	eventDriftFrames    = 1
	periodicDriftFrames = 2

	driftCheckInterval = 500 * time.Millisecond
)

// ErrAudioBlocked means the audio element refused to start, usually the
// browser's autoplay policy. The synchronizer stays paused and valid;
// playback can be retried after user interaction.
var ErrAudioBlocked = errors.New("audio playback blocked")

// Synchronizer owns playback state for one scene sequence. The audio element
// is the authoritative clock: logical elapsed time is the cumulative
// duration of completed scenes plus the current audio position. Frame
// corrections are bounded-drift rather than hard locks.
type Synchronizer struct {
	mu        sync.Mutex
	scenes    []models.Scene
	durations []int
	total     int

	renderer Renderer
	audio    AudioSurface
	clock    Clock
	logger   *zap.Logger

	playing      bool
	elapsed      float64
	pos          timeline.Position
	advanceTimer Timer
	driftStop    chan struct{}
}

type SyncOption func(*Synchronizer)

func WithClock(c Clock) SyncOption {
	return func(s *Synchronizer) { s.clock = c }
}

func WithLogger(l *zap.Logger) SyncOption {
	return func(s *Synchronizer) { s.logger = l }
}

func NewSynchronizer(scenes []models.Scene, renderer Renderer, audio AudioSurface, opts ...SyncOption) *Synchronizer {
	durations := make([]int, len(scenes))
	for i, scene := range scenes {
		durations[i] = timeline.SceneDuration(scene.Captions)
	}
	s := &Synchronizer{
		scenes:    scenes,
		durations: durations,
		total:     timeline.Total(durations),
		renderer:  renderer,
		audio:     audio,
		clock:     NewClock(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(scenes) > 0 && scenes[0].AudioURL != "" {
		audio.SetSource(scenes[0].AudioURL)
	}
	return s
}

// Play starts playback from the current logical position. The renderer is
// seeked before audio starts so no stale frame flashes. An audio start
// failure leaves the synchronizer paused and valid.
func (s *Synchronizer) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing || len(s.scenes) == 0 {
		return nil
	}

	s.renderer.SeekTo(frameAt(s.elapsed))

	scene := s.scenes[s.pos.Index]
	if scene.AudioURL == "" {
		s.playing = true
		s.renderer.Play()
		s.scheduleAutoAdvanceLocked()
		s.startDriftLoopLocked()
		return nil
	}

	s.audio.SetCurrentTime(s.pos.Offset)
	if err := s.audio.Play(); err != nil {
		s.logger.Warn("audio failed to start", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrAudioBlocked, err)
	}
	s.playing = true
	s.renderer.Play()
	s.startDriftLoopLocked()
	return nil
}

// Pause halts both surfaces and cancels every pending timer. The logical
// playhead is preserved so playback resumes from the same point.
func (s *Synchronizer) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopPlaybackLocked()
}

// HandleTimeUpdate ingests a time-update event from the audio element. The
// new logical time either advances within the active scene, correcting the
// renderer if drift exceeds the event threshold, or crosses into the next
// scene and triggers a transition.
func (s *Synchronizer) HandleTimeUpdate(audioTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scenes) == 0 {
		return
	}

	elapsed := s.pos.CumulativeBefore + audioTime
	pos := timeline.ActiveSceneAt(elapsed, s.durations)
	if pos.Index != s.pos.Index {
		s.transitionLocked(pos)
		return
	}
	s.pos = pos
	s.elapsed = elapsed
	s.correctDriftLocked(eventDriftFrames)
}

// HandleAudioEnded advances to the next scene, or ends playback after the
// last one.
func (s *Synchronizer) HandleAudioEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
}

// Seek moves the logical playhead. It is handled exactly like a scene
// transition: recompute the active scene and reseek both surfaces.
func (s *Synchronizer) Seek(elapsed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scenes) == 0 {
		return
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if max := float64(s.total); elapsed > max {
		elapsed = max
	}
	s.transitionLocked(timeline.ActiveSceneAt(elapsed, s.durations))
}

// IsPlaying reports whether playback is running.
func (s *Synchronizer) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Elapsed returns the logical playhead in seconds.
func (s *Synchronizer) Elapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Position returns the active scene index and offset.
func (s *Synchronizer) Position() timeline.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// TotalDuration returns the timeline length in seconds.
func (s *Synchronizer) TotalDuration() int {
	return s.total
}

// ActiveCaption returns the caption segment the playhead is inside, if any.
func (s *Synchronizer) ActiveCaption() (captions.Segment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scenes) == 0 {
		return captions.Segment{}, false
	}
	segs := s.scenes[s.pos.Index].Captions
	idx, ok := captions.ActiveSegmentAt(segs, int(s.pos.Offset*1000))
	if !ok {
		return captions.Segment{}, false
	}
	return segs[idx], true
}

// transitionLocked switches the active scene: cancel any pending
// auto-advance, seek the renderer first so no stale frame flashes, then load
// and (when playing) resume the new scene's audio.
func (s *Synchronizer) transitionLocked(pos timeline.Position) {
	s.cancelAdvanceLocked()
	s.pos = pos
	s.elapsed = pos.CumulativeBefore + pos.Offset

	s.renderer.SeekTo(frameAt(s.elapsed))

	scene := s.scenes[pos.Index]
	if scene.AudioURL == "" {
		s.audio.Pause()
		if s.playing {
			s.scheduleAutoAdvanceLocked()
		}
		return
	}

	s.audio.SetSource(scene.AudioURL)
	s.audio.SetCurrentTime(pos.Offset)
	if s.playing {
		if err := s.audio.Play(); err != nil {
			s.logger.Warn("audio failed to resume after scene change", zap.Error(err))
			s.stopPlaybackLocked()
		}
	}
}

func (s *Synchronizer) advanceLocked() {
	next := s.pos.Index + 1
	if next >= len(s.scenes) {
		s.elapsed = float64(s.total)
		s.pos = timeline.ActiveSceneAt(s.elapsed, s.durations)
		s.stopPlaybackLocked()
		return
	}
	s.transitionLocked(timeline.Position{
		Index:            next,
		Offset:           0,
		CumulativeBefore: s.pos.CumulativeBefore + float64(s.durations[s.pos.Index]),
	})
}

// scheduleAutoAdvanceLocked arms a timer for scenes with no audio: they play
// out their fallback duration and advance without any audio ended event.
func (s *Synchronizer) scheduleAutoAdvanceLocked() {
	remaining := float64(s.durations[s.pos.Index]) - s.pos.Offset
	if remaining < 0 {
		remaining = 0
	}
	s.advanceTimer = s.clock.AfterFunc(time.Duration(remaining*float64(time.Second)), func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.playing {
			return
		}
		s.advanceLocked()
	})
}

// startDriftLoopLocked runs the periodic drift check while playing. It
// guards against drift accumulating between audio time-update events, which
// fire at a coarser, browser-determined cadence.
func (s *Synchronizer) startDriftLoopLocked() {
	if s.driftStop != nil {
		return
	}
	stop := make(chan struct{})
	s.driftStop = stop
	ticker := s.clock.NewTicker(driftCheckInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				s.checkDrift()
			case <-stop:
				return
			}
		}
	}()
}

func (s *Synchronizer) checkDrift() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return
	}
	s.correctDriftLocked(periodicDriftFrames)
}

func (s *Synchronizer) correctDriftLocked(threshold int) {
	target := frameAt(s.elapsed)
	current := s.renderer.CurrentFrame()
	drift := current - target
	if drift < 0 {
		drift = -drift
	}
	if drift > threshold {
		s.logger.Debug("correcting renderer drift",
			zap.Int("current_frame", current),
			zap.Int("target_frame", target))
		s.renderer.SeekTo(target)
	}
}

// stopPlaybackLocked is every path out of the playing state: it pauses both
// surfaces and clears all timers armed while playing.
func (s *Synchronizer) stopPlaybackLocked() {
	s.playing = false
	s.audio.Pause()
	s.renderer.Pause()
	s.cancelAdvanceLocked()
	if s.driftStop != nil {
		close(s.driftStop)
		s.driftStop = nil
	}
}

func (s *Synchronizer) cancelAdvanceLocked() {
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
}

func frameAt(seconds float64) int {
	return int(seconds * FPS)
}
