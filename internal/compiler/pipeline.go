// pipeline.go - compilation stages, their order and how long each took
package compiler

import (
	"fmt"
	"os"
	"time"

	"github.com/xyproto/wist/internal/engine"
)

// Stage is one step of a compilation
type Stage int

const (
	StageInit Stage = iota
	StageLowering
	StageVerify
	StageCodegen
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "Initialization"
	case StageLowering:
		return "IR Lowering"
	case StageVerify:
		return "Stack Verification"
	case StageCodegen:
		return "Code Generation"
	case StageComplete:
		return "Compilation Complete"
	default:
		return fmt.Sprintf("Unknown Stage %d", s)
	}
}

// Timings holds the wall time spent in each stage
type Timings struct {
	Lowering time.Duration
	Verify   time.Duration
	Codegen  time.Duration
}

// Total is the time of all stages together
func (t Timings) Total() time.Duration {
	return t.Lowering + t.Verify + t.Codegen
}

func (t Timings) String() string {
	return fmt.Sprintf("lowering %v, verify %v, codegen %v, total %v", t.Lowering, t.Verify, t.Codegen, t.Total())
}

// pipeline tracks the current stage and only moves forward, one stage at
// a time
type pipeline struct {
	current Stage
	started time.Time
	timings Timings
}

func newPipeline() *pipeline {
	return &pipeline{current: StageInit, started: time.Now()}
}

// advanceTo closes the current stage and enters the next one
func (p *pipeline) advanceTo(stage Stage) {
	if stage != p.current+1 {
		panic(fmt.Sprintf("invalid compilation stage transition: %s -> %s", p.current, stage))
	}
	now := time.Now()
	elapsed := now.Sub(p.started)
	switch p.current {
	case StageLowering:
		p.timings.Lowering = elapsed
	case StageVerify:
		p.timings.Verify = elapsed
	case StageCodegen:
		p.timings.Codegen = elapsed
	}
	if engine.VerboseMode && p.current != StageInit {
		fmt.Fprintf(os.Stderr, "PIPELINE: %s took %v\n", p.current, elapsed)
	}
	p.current = stage
	p.started = now
}
