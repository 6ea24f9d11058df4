// Package audit persists what remarkql did: every summarization attempt,
// every result an analyst flagged and every grade a reviewer gave. It backs
// the usage report, the flag export commands and the review page.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Outcome is how an invocation ended.
type Outcome string

// Invocation outcomes.
const (
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomeRecoverable Outcome = "recoverable"
	OutcomeFatal       Outcome = "fatal"
	OutcomeCanceled    Outcome = "canceled"
)

// Invocation is one summarization attempt.
type Invocation struct {
	ID                string
	At                time.Time
	Mode              string
	Selection         map[string][]string
	Outcome           Outcome
	Message           string
	RemarkCount       int
	Duration          time.Duration
	PromptFingerprint string
	// Prompt is the rendered user prompt, empty when no provider call was made.
	Prompt string
	// Summary is the text the model produced, partial for a broken stream.
	Summary string
}

// Flag is a result an analyst marked, with everything that was on screen.
type Flag struct {
	ID        string              `json:"id" yaml:"id"`
	At        time.Time           `json:"date" yaml:"date"`
	Option    string              `json:"flag_option" yaml:"flag_option"`
	Selection map[string][]string `json:"selection" yaml:"selection"`
	Summary   string              `json:"summary" yaml:"summary"`
	Remarks   []string            `json:"remarks" yaml:"remarks"`
}

// Grade is a reviewer's judgement of a summary.
type Grade string

// Grades in the order the review page offers them.
const (
	GradeIncorrect Grade = "incorrect"
	GradeDecent    Grade = "decent"
	GradeCorrect   Grade = "correct"
	GradeUnsure    Grade = "unsure"
)

// Grades lists every grade.
var Grades = []Grade{GradeIncorrect, GradeDecent, GradeCorrect, GradeUnsure}

// ParseGrade accepts a grade name in any case.
func ParseGrade(s string) (Grade, error) {
	for _, g := range Grades {
		if strings.EqualFold(s, string(g)) {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown grade %q", s)
}

// Judgement is one reviewer grade of a logged invocation.
type Judgement struct {
	ID           string
	At           time.Time
	InvocationID string
	Grade        Grade
}

// ErrNothingToReview is returned by SampleInvocation when no successful
// invocation with a summary has been logged.
var ErrNothingToReview = errors.New("nothing to review")

// DailyUsage counts invocations on one UTC day.
type DailyUsage struct {
	Day         time.Time
	Total       int
	Succeeded   int
	Recoverable int
	Fatal       int
}

// Store is the audit persistence contract.
type Store interface {
	RecordInvocation(ctx context.Context, inv *Invocation) error
	RecordFlag(ctx context.Context, f *Flag) error
	ListFlags(ctx context.Context, since time.Time) ([]*Flag, error)
	DailyUsage(ctx context.Context, since time.Time) ([]DailyUsage, error)
	SampleInvocation(ctx context.Context) (*Invocation, error)
	RecordJudgement(ctx context.Context, j *Judgement) error
	JudgementCounts(ctx context.Context) (map[Grade]int, error)
	Close() error
}
