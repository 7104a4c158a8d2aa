package playback

// Renderer is the frame-based visual renderer, running at a fixed FPS with
// its own internal clock. The synchronizer is its sole writer during
// playback.
type Renderer interface {
	SeekTo(frame int)
	CurrentFrame() int
	Play()
	Pause()
}

// AudioSurface is the audio element holding the currently loaded scene's
// clip. Play may fail when the browser's autoplay policy blocks it; that is
// recoverable by explicit user action.
type AudioSurface interface {
	SetSource(url string)
	SetCurrentTime(seconds float64)
	CurrentTime() float64
	Play() error
	Pause()
}
