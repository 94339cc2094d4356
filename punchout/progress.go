package punchout

// Progress is the four-stage state machine for one attempt. Transitions are
// monotonic per stage: pending < loading < success, with error absorbing
// whatever was active. Signals are idempotent; repeated delivery is a no-op.
//
// Each attempt owns its own Progress value. Concurrent attempts never share
// one.
type Progress struct {
	Parsing  Status `json:"parsing"`
	Auth     Status `json:"auth"`
	Catalog  Status `json:"catalog"`
	Complete Status `json:"complete"`
}

// StageChange records one transition for event emission.
type StageChange struct {
	Stage  Stage
	Status Status
}

func NewProgress() Progress {
	return Progress{
		Parsing:  StatusLoading,
		Auth:     StatusPending,
		Catalog:  StatusPending,
		Complete: StatusPending,
	}
}

func (p Progress) Get(stage Stage) Status {
	switch stage {
	case StageParsing:
		return p.Parsing
	case StageAuth:
		return p.Auth
	case StageCatalog:
		return p.Catalog
	case StageComplete:
		return p.Complete
	}
	return ""
}

func statusRank(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusLoading:
		return 1
	case StatusSuccess:
		return 2
	}
	return 3 // error absorbs
}

// set applies a transition if it does not regress the stage. Returns the
// change if applied.
func (p *Progress) set(stage Stage, status Status) (StageChange, bool) {
	cur := p.Get(stage)
	if cur == StatusError {
		return StageChange{}, false
	}
	if status != StatusError && statusRank(status) <= statusRank(cur) {
		return StageChange{}, false
	}
	switch stage {
	case StageParsing:
		p.Parsing = status
	case StageAuth:
		p.Auth = status
	case StageCatalog:
		p.Catalog = status
	case StageComplete:
		p.Complete = status
	default:
		return StageChange{}, false
	}
	return StageChange{Stage: stage, Status: status}, true
}

// MarkDispatched records gateway acceptance of the setup document.
func (p *Progress) MarkDispatched() []StageChange {
	return collect(p.set(StageParsing, StatusSuccess))
}

// MarkDispatchFailed records a terminal dispatch failure. No later stage is
// ever entered after this.
func (p *Progress) MarkDispatchFailed() []StageChange {
	return collect(p.set(StageParsing, StatusError))
}

// BeginPolling marks the auth stage active once the correlation token is in
// hand and the audit log is being watched.
func (p *Progress) BeginPolling() []StageChange {
	if p.Parsing != StatusSuccess {
		return nil
	}
	return collect(p.set(StageAuth, StatusLoading))
}

// MarkAuthObserved handles the poller's auth-success signal: auth completes
// and catalog becomes the active stage. Idempotent. Poll signals arriving
// before dispatch has succeeded are dropped; auth can never run ahead of
// parsing.
func (p *Progress) MarkAuthObserved() []StageChange {
	if p.Parsing != StatusSuccess {
		return nil
	}
	var changes []StageChange
	if c, ok := p.set(StageAuth, StatusSuccess); ok {
		changes = append(changes, c)
	}
	if p.Auth == StatusSuccess {
		if c, ok := p.set(StageCatalog, StatusLoading); ok {
			changes = append(changes, c)
		}
	}
	return changes
}

// MarkCatalogObserved handles the poller's catalog-success signal. Complete
// only reaches success when catalog has.
func (p *Progress) MarkCatalogObserved() []StageChange {
	if p.Parsing != StatusSuccess {
		return nil
	}
	var changes []StageChange
	// The catalog call can land in the audit log before the auth entry is
	// observed; the auth stage is carried to success rather than skipped.
	changes = append(changes, p.MarkAuthObserved()...)
	if c, ok := p.set(StageCatalog, StatusSuccess); ok {
		changes = append(changes, c)
	}
	if p.Catalog == StatusSuccess {
		if c, ok := p.set(StageComplete, StatusSuccess); ok {
			changes = append(changes, c)
		}
	}
	return changes
}

// FailActive marks whichever stage is currently loading as errored. Returns
// no change when nothing is loading; callers then report the failure without
// a stage attribution.
func (p *Progress) FailActive() []StageChange {
	for _, stage := range []Stage{StageParsing, StageAuth, StageCatalog, StageComplete} {
		if p.Get(stage) == StatusLoading {
			return collect(p.set(stage, StatusError))
		}
	}
	return nil
}

// Terminal reports whether the machine can advance no further.
func (p Progress) Terminal() bool {
	if p.Complete == StatusSuccess {
		return true
	}
	for _, s := range []Status{p.Parsing, p.Auth, p.Catalog, p.Complete} {
		if s == StatusError {
			return true
		}
	}
	return false
}

func collect(c StageChange, ok bool) []StageChange {
	if !ok {
		return nil
	}
	return []StageChange{c}
}
