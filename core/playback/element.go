package playback

// Element is the single audio output a Controller drives. A controller
// owns its element exclusively; nothing else may load sources into it or
// start and stop it.
//
// Implementations must not call back into the Listener synchronously from
// Load, Play, Pause or Seek. Timing events are delivered later, from the
// element's own event source.
type Element interface {
	Load(src string)
	Play()
	Pause()
	Seek(seconds float64)

	// Subscribe registers l for the element's timing events. The returned
	// cancel function deregisters it; calling it more than once is safe.
	Subscribe(l Listener) (cancel func())
}

// Listener receives an element's timing events.
type Listener interface {
	// TimeUpdate fires on every playback tick.
	TimeUpdate(current, duration float64)
	// MetadataLoaded fires once per source, when its duration is known.
	MetadataLoaded(duration float64)
	// Ended fires when the loaded source plays to completion.
	Ended()
}
