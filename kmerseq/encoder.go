package kmerseq

// Mode selects how the Encoder enumerates k-mers from a window stream.
type Mode int

const (
	// EveryWindow yields the canonical k-mer at every valid window.
	EveryWindow Mode = iota
	// Minimizer yields the lexicographically smallest canonical k-mer
	// among each run of w-k+1 consecutive windows. Only meaningful when
	// w > k; intended for build, not classify (spec §4.1).
	Minimizer
)

// ScoreMode selects the ordering used to pick a window's representative
// k-mer. Only Lexicographic is implemented; EntropyWeighted is accepted
// but the Encoder orders lexicographically regardless.
type ScoreMode int

const (
	// Lexicographic orders k-mers by their packed code, ascending.
	Lexicographic ScoreMode = iota
	// EntropyWeighted is not implemented.
	EntropyWeighted
)

// Hit is one emitted window: its 0-based start position in the input
// sequence and its canonical (or forward, if Canonical is off) code.
// Ambiguous windows are reported via Code == Ambiguous.
type Hit struct {
	Pos  int
	Code uint64
}

// Encoder walks one sequence's windows according to a Spacer, enumerating
// either every window or the running minimizer. It never returns an error;
// ambiguous windows are reported through the Ambiguous sentinel (or
// suppressed entirely in Minimizer mode).
type Encoder struct {
	spacer    *Spacer
	mode      Mode
	canonical bool
	score     ScoreMode
}

// NewEncoder builds an Encoder over spacer. mode selects every-window vs.
// minimizer enumeration; canonical selects whether emitted codes are
// canonicalized. score is retained for future scoring schemes; only
// Lexicographic is currently honored.
func NewEncoder(spacer *Spacer, mode Mode, canonical bool, score ScoreMode) *Encoder {
	return &Encoder{spacer: spacer, mode: mode, canonical: canonical, score: score}
}

// K returns the encoder's k-mer width.
func (e *Encoder) K() int { return e.spacer.K }

// CoveredWidth returns the encoder's window width c.
func (e *Encoder) CoveredWidth() int { return e.spacer.W }

// windowCodes enumerates every window of seq, applying the ambiguity carry
// counter described in spec §4.1: any non-ACGT base sets the counter to c;
// each subsequent base decrements it; while positive the window yields
// Ambiguous. fn is called once per window in left-to-right order; the walk
// always covers the whole sequence.
func (e *Encoder) windowCodes(seq []byte, fn func(pos int, code uint64)) {
	c := e.spacer.W
	k := e.spacer.K
	l := len(seq)
	if l < c {
		return
	}

	counter := 0
	kmerBuf := make([]byte, k)
	for p := 0; p < l; p++ {
		if counter > 0 {
			counter--
		}
		if _, ok := baseCode(seq[p]); !ok {
			counter = c
		}

		windowStart := p - c + 1
		if windowStart < 0 {
			continue
		}

		if counter > 0 {
			fn(windowStart, Ambiguous)
			continue
		}

		e.spacer.Select(seq[windowStart:windowStart+c], kmerBuf)
		code, err := Encode(kmerBuf)
		if err != nil {
			// The carry counter guarantees no ambiguous base remains in
			// the window; this would indicate a Spacer/Select mismatch.
			fn(windowStart, Ambiguous)
			continue
		}
		if e.canonical {
			code = KmerCode{code, k}.Canonical().Code
		}
		fn(windowStart, code)
	}
}

// EveryWindowKmers returns every window's code (Ambiguous for poisoned
// windows), in left-to-right order. Its length is always len(seq)-c+1 for
// len(seq) >= c, else zero.
func (e *Encoder) EveryWindowKmers(seq []byte) []Hit {
	c := e.spacer.W
	if len(seq) < c {
		return nil
	}
	hits := make([]Hit, 0, len(seq)-c+1)
	e.windowCodes(seq, func(pos int, code uint64) {
		hits = append(hits, Hit{pos, code})
	})
	return hits
}

// Minimizers returns the running minimizer over every-window k-mers,
// deduplicating consecutive repeats of the same minimum the way a standard
// minimizer sketch does (teacher's sketch.go NextMinimizer, generalized
// from a rolling hash to canonical k-mer codes and reworked around a
// monotonic deque for a windowed minimum). Ambiguous windows never
// participate; a run of w-k+1 windows that is entirely ambiguous yields no
// emission.
func (e *Encoder) Minimizers(seq []byte) []Hit {
	c := e.spacer.W
	k := e.spacer.K
	win := c - k + 1
	if win < 1 {
		win = 1
	}

	windows := e.EveryWindowKmers(seq)
	if len(windows) == 0 {
		return nil
	}

	out := make([]Hit, 0, len(windows)/win+1)
	var deque []int // indices into windows, codes ascending, ambiguous excluded
	lastEmitted := Ambiguous
	for i := range windows {
		if windows[i].Code != Ambiguous {
			for len(deque) > 0 && windows[deque[len(deque)-1]].Code >= windows[i].Code {
				deque = deque[:len(deque)-1]
			}
			deque = append(deque, i)
		}
		for len(deque) > 0 && deque[0] <= i-win {
			deque = deque[1:]
		}

		if i < win-1 {
			continue
		}
		if len(deque) == 0 {
			continue
		}
		min := windows[deque[0]]
		if min.Code != lastEmitted {
			out = append(out, min)
			lastEmitted = min.Code
		}
	}
	return out
}

// Encode runs the configured enumeration mode over seq.
func (e *Encoder) Encode(seq []byte) []Hit {
	if e.mode == Minimizer {
		return e.Minimizers(seq)
	}
	return e.EveryWindowKmers(seq)
}
