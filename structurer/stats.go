package structurer

// Stats accumulates diagnostic counters for an Engine across every Structure call made on it,
// surfaced to callers that want to understand how much rewriting an engine run actually did (useful for regression-testing
// the pipeline against a corpus of regions without asserting on exact AST shape).
type Stats struct {
	RegionsStructured      int
	AcyclicRegions         int
	CyclicRegions          int
	SwitchesRecognized     int
	NodesMerged            int
	ITEsPaired             int
	SubexprsGuarded        int
	EmptyNodesRemoved      int
	LoopsRefinedToWhile    int
	LoopsRefinedToDo       int
	LoopExitsDisambiguated int
	FixedPointRounds       int
}

func (s *Stats) recordRegion(cyclic bool) {
	s.RegionsStructured++
	if cyclic {
		s.CyclicRegions++
	} else {
		s.AcyclicRegions++
	}
}
