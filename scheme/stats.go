package scheme

// Stats counts the work done while assembling a scheme.
type Stats struct {
	// Regions is the number of committed regions.
	Regions int
	// DesignCalls is the number of design oracle calls.
	DesignCalls int
	// EmptyCalls counts design oracle calls that returned no pairs at all.
	EmptyCalls int
	// WidenSteps, LeftSteps and RightSteps count window moves by mode.
	WidenSteps int
	LeftSteps  int
	RightSteps int
	// Candidates is the number of distinct candidate primers scored,
	// excluding alternates.
	Candidates int
	// Alternates is the number of alternate primers added.
	Alternates int
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Regions += o.Regions
	s.DesignCalls += o.DesignCalls
	s.EmptyCalls += o.EmptyCalls
	s.WidenSteps += o.WidenSteps
	s.LeftSteps += o.LeftSteps
	s.RightSteps += o.RightSteps
	s.Candidates += o.Candidates
	s.Alternates += o.Alternates
	return s
}

// Steps is the total number of window moves.
func (s Stats) Steps() int {
	return s.WidenSteps + s.LeftSteps + s.RightSteps
}
