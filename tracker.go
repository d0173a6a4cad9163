package derivable

// recording collects the dependencies read by one computation
type recording struct {
	deps     []dependency
	versions []uint64
}

func (r *recording) add(dep dependency) {
	if containsElement(r.deps, dep) {
		return
	}
	r.deps = append(r.deps, dep)
	r.versions = append(r.versions, dep.base().version)
}

// tracker is the recording stack of a runtime. A nil frame suspends
// recording for everything above it.
type tracker struct {
	frames []*recording
}

func (t *tracker) current() *recording {
	if len(t.frames) == 0 {
		return nil
	}
	return t.frames[len(t.frames)-1]
}

func (t *tracker) recording() bool {
	return t.current() != nil
}

func (t *tracker) start() *recording {
	r := &recording{}
	t.frames = append(t.frames, r)
	return r
}

func (t *tracker) suspend() {
	t.frames = append(t.frames, nil)
}

func (t *tracker) pop() {
	t.frames[len(t.frames)-1] = nil
	t.frames = t.frames[:len(t.frames)-1]
}

// record appends dep to the active recording, if any
func (t *tracker) record(dep dependency) {
	if r := t.current(); r != nil {
		r.add(dep)
	}
}

// track runs fn inside a fresh recording and returns what it read
func (t *tracker) track(fn func()) *recording {
	r := t.start()
	defer t.pop()
	fn()
	return r
}

// independent runs fn with recording suspended
func independent[R any](t *tracker, fn func() R) R {
	t.suspend()
	defer t.pop()
	return fn()
}
