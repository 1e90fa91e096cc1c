package gpio

// Level is one recorded change of an output line.
type Level struct {
	Line int
	High bool
}

// Journal records level changes across several fake outputs, in order.
type Journal struct {
	Levels []Level
}

// FakeOutput is a test double that records every level it is driven to.
type FakeOutput struct {
	// Line is the offset reported in the journal.
	Line int

	// High is the current level.
	High bool

	// Pulses counts high-to-low transitions.
	Pulses int

	// SetError, if set, is returned by SetHigh and SetLow without changing the level.
	SetError error

	// Closed tracks if Close was called
	Closed bool

	journal *Journal
}

// NewFakeOutput creates a FakeOutput. journal may be nil.
func NewFakeOutput(line int, journal *Journal) *FakeOutput {
	return &FakeOutput{Line: line, journal: journal}
}

// SetHigh drives the fake line high.
func (f *FakeOutput) SetHigh() error {
	return f.set(true)
}

// SetLow drives the fake line low, counting a pulse if it was high.
func (f *FakeOutput) SetLow() error {
	return f.set(false)
}

func (f *FakeOutput) set(high bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	if f.High && !high {
		f.Pulses++
	}
	f.High = high
	if f.journal != nil {
		f.journal.Levels = append(f.journal.Levels, Level{Line: f.Line, High: high})
	}
	return nil
}

// Close drives the line low and marks it closed.
func (f *FakeOutput) Close() error {
	f.High = false
	f.Closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakeOutput) Reset() {
	f.High = false
	f.Pulses = 0
	f.Closed = false
	if f.journal != nil {
		f.journal.Levels = nil
	}
}
