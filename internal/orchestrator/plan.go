package orchestrator

import (
	"fmt"
	"time"

	"go.klb.dev/nozzle/internal/history"
)

// Kind tags a plan entry.
type Kind int

const (
	KindPrompt Kind = iota
	KindItem
)

func (k Kind) String() string {
	if k == KindPrompt {
		return "prompt"
	}
	return "item"
}

// Entry is one unit of a paste plan: either the prompt text or a record.
type Entry struct {
	Kind   Kind
	Text   string
	Record history.Record
}

// Prompt returns a prompt entry.
func Prompt(text string) Entry { return Entry{Kind: KindPrompt, Text: text} }

// Item returns an entry for r.
func Item(r history.Record) Entry { return Entry{Kind: KindItem, Text: r.Text, Record: r} }

func (e Entry) String() string {
	if e.Kind == KindPrompt {
		return fmt.Sprintf("Prompt(%q)", e.Text)
	}
	return fmt.Sprintf("Item(%s)", e.Record.ID)
}

// BuildPlan lays out a combined paste: the prompt first when non-empty, then
// records in the order given.
func BuildPlan(prompt string, records []history.Record) []Entry {
	plan := make([]Entry, 0, len(records)+1)
	if prompt != "" {
		plan = append(plan, Prompt(prompt))
	}
	for _, r := range records {
		plan = append(plan, Item(r))
	}
	return plan
}

// Op is what a step does.
type Op int

const (
	OpWrite Op = iota
	OpPaste
)

func (o Op) String() string {
	if o == OpWrite {
		return "write"
	}
	return "paste"
}

// Step is one scheduled action of a run. Delay is how long the run waits
// after the step before starting the next one.
type Step struct {
	Op        Op
	Entry     Entry
	Separator bool
	Delay     time.Duration
}

// Timing holds the pipeline's delays.
type Timing struct {
	// Settle is the wait between a clipboard write and the paste keystroke.
	Settle time.Duration

	// AfterPrompt, AfterItem and AfterSeparator are the waits after the
	// paste keystroke for each kind of entry.
	AfterPrompt    time.Duration
	AfterItem      time.Duration
	AfterSeparator time.Duration

	// Separator is pasted between consecutive entries. Empty disables it.
	Separator string
}

// DefaultTiming returns the stock delays.
func DefaultTiming() Timing {
	return Timing{
		Settle:         50 * time.Millisecond,
		AfterPrompt:    100 * time.Millisecond,
		AfterItem:      150 * time.Millisecond,
		AfterSeparator: 100 * time.Millisecond,
		Separator:      "\n",
	}
}

// Compile expands plan into the flat step list a run executes: a
// write/paste pair per entry, with a separator pair between consecutive
// entries but not after the last.
func (t Timing) Compile(plan []Entry) []Step {
	steps := make([]Step, 0, len(plan)*4)
	for i, e := range plan {
		after := t.AfterItem
		if e.Kind == KindPrompt {
			after = t.AfterPrompt
		}
		steps = append(steps,
			Step{Op: OpWrite, Entry: e, Delay: t.Settle},
			Step{Op: OpPaste, Entry: e, Delay: after},
		)
		if i < len(plan)-1 && t.Separator != "" {
			sep := Entry{Kind: KindPrompt, Text: t.Separator}
			steps = append(steps,
				Step{Op: OpWrite, Entry: sep, Separator: true, Delay: t.Settle},
				Step{Op: OpPaste, Entry: sep, Separator: true, Delay: t.AfterSeparator},
			)
		}
	}
	return steps
}

// Duration is the total time the steps take.
func Duration(steps []Step) time.Duration {
	var d time.Duration
	for _, s := range steps {
		d += s.Delay
	}
	return d
}
