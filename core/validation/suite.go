// Package validation runs preflight checks before the server starts and
// prints a colored progress report.
package validation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// StepStatus is the outcome of one check.
type StepStatus int

const (
	StepPassed StepStatus = iota
	StepWarning
	StepFailed
	StepSkipped
)

// String returns the lowercase status name.
func (s StepStatus) String() string {
	switch s {
	case StepPassed:
		return "passed"
	case StepWarning:
		return "warning"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is what a check reports.
type Outcome struct {
	Status  StepStatus
	Message string
	Err     error
}

func Passed(msg string) Outcome {
	return Outcome{Status: StepPassed, Message: msg}
}

func Warned(msg string, err error) Outcome {
	return Outcome{Status: StepWarning, Message: msg, Err: err}
}

func Failed(msg string, err error) Outcome {
	return Outcome{Status: StepFailed, Message: msg, Err: err}
}

func Skipped(msg string) Outcome {
	return Outcome{Status: StepSkipped, Message: msg}
}

// Check is one named preflight step.
type Check struct {
	Name string
	Run  func(ctx context.Context) Outcome
}

// Step records a finished check.
type Step struct {
	Name    string
	Outcome Outcome
	Latency time.Duration
}

// Result aggregates a suite run.
type Result struct {
	Steps    []Step
	Passed   int
	Warnings int
	Failed   int
	Duration time.Duration
}

// Success reports whether no check failed. Warnings do not count.
func (r Result) Success() bool {
	return r.Failed == 0
}

// Err joins the errors of failed steps.
func (r Result) Err() error {
	var errs []error
	for _, step := range r.Steps {
		if step.Outcome.Status == StepFailed && step.Outcome.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, step.Outcome.Err))
		}
	}
	return errors.Join(errs...)
}

// Suite runs checks in order.
type Suite struct {
	title    string
	output   io.Writer
	checks   []Check
	failFast bool
}

// NewSuite creates a suite that reports to output. A nil output runs silently.
func NewSuite(title string, output io.Writer) *Suite {
	return &Suite{title: title, output: output}
}

// WithFailFast skips the remaining checks after the first failure.
func (s *Suite) WithFailFast(failFast bool) *Suite {
	s.failFast = failFast
	return s
}

// Add appends checks.
func (s *Suite) Add(checks ...Check) *Suite {
	s.checks = append(s.checks, checks...)
	return s
}

// Run executes every check.
func (s *Suite) Run(ctx context.Context) Result {
	start := time.Now()
	s.printHeader()

	result := Result{Steps: make([]Step, 0, len(s.checks))}
	for _, check := range s.checks {
		var step Step
		if s.failFast && result.Failed > 0 {
			step = Step{Name: check.Name, Outcome: Skipped("skipped after earlier failure")}
		} else {
			began := time.Now()
			step = Step{Name: check.Name, Outcome: check.Run(ctx), Latency: time.Since(began)}
		}

		switch step.Outcome.Status {
		case StepPassed:
			result.Passed++
		case StepWarning:
			result.Warnings++
		case StepFailed:
			result.Failed++
		}
		result.Steps = append(result.Steps, step)
		s.printStep(step)
	}

	result.Duration = time.Since(start)
	s.printSummary(result)
	return result
}

func (s *Suite) printHeader() {
	if s.output == nil {
		return
	}
	fmt.Fprintln(s.output)
	color.New(color.FgCyan, color.Bold).Fprintf(s.output, "━━━ %s ━━━\n", s.title)
	fmt.Fprintln(s.output)
}

func (s *Suite) printStep(step Step) {
	if s.output == nil {
		return
	}

	var icon string
	var clr *color.Color
	switch step.Outcome.Status {
	case StepPassed:
		icon, clr = "✓", color.New(color.FgGreen)
	case StepWarning:
		icon, clr = "!", color.New(color.FgYellow)
	case StepFailed:
		icon, clr = "✗", color.New(color.FgRed)
	default:
		icon, clr = "○", color.New(color.FgHiBlack)
	}

	clr.Fprintf(s.output, "  %s %s", icon, step.Name)
	if step.Outcome.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", step.Outcome.Message)
	}
	fmt.Fprintln(s.output)

	if step.Outcome.Err != nil && step.Outcome.Status != StepPassed {
		clr.Fprintf(s.output, "    └─ %s\n", step.Outcome.Err.Error())
	}
}

func (s *Suite) printSummary(result Result) {
	if s.output == nil {
		return
	}
	fmt.Fprintln(s.output)

	dim := color.New(color.FgHiBlack)
	if result.Success() {
		ok := color.New(color.FgGreen, color.Bold)
		ok.Fprint(s.output, "━━━ Preflight Passed ")
		dim.Fprintf(s.output, "(%d passed, %d warnings in %v)", result.Passed, result.Warnings, result.Duration.Round(time.Millisecond))
		ok.Fprintln(s.output, " ━━━")
	} else {
		fail := color.New(color.FgRed, color.Bold)
		fail.Fprint(s.output, "━━━ Preflight Failed ")
		dim.Fprintf(s.output, "(%d passed, %d failed)", result.Passed, result.Failed)
		fail.Fprintln(s.output, " ━━━")
	}
	fmt.Fprintln(s.output)
}
