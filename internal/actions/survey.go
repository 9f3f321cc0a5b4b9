// Package actions holds the handlers that never leave the process: the
// survey wizard, referral codes and share messages, and product scans.
package actions

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/matthieukhl/loyaltydesk/internal/models"
)

var (
	ErrUnanswered    = errors.New("current question has no answer")
	ErrInvalidAnswer = errors.New("answer is not one of the options")
	ErrNoQuestions   = errors.New("survey has no questions")
	ErrFinished      = errors.New("survey is already complete")
)

// Wizard walks a fixed list of questions one step at a time. Step equals
// len(questions) once every question has been answered and Next was called
// on the last one.
type Wizard struct {
	questions []models.SurveyQuestion
	answers   map[string]string
	step      int
}

func NewWizard(questions []models.SurveyQuestion) (*Wizard, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return &Wizard{questions: questions, answers: map[string]string{}}, nil
}

// Current returns the question at the current step.
func (w *Wizard) Current() (models.SurveyQuestion, bool) {
	if w.Done() {
		return models.SurveyQuestion{}, false
	}
	return w.questions[w.step], true
}

func (w *Wizard) Step() int  { return w.step }
func (w *Wizard) Total() int { return len(w.questions) }
func (w *Wizard) Done() bool { return w.step >= len(w.questions) }

// Answer records an option for the current question. Answers are matched
// case-insensitively and stored in the option's own spelling.
func (w *Wizard) Answer(answer string) error {
	q, ok := w.Current()
	if !ok {
		return ErrFinished
	}
	idx := slices.IndexFunc(q.Options, func(o string) bool {
		return strings.EqualFold(o, strings.TrimSpace(answer))
	})
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidAnswer, answer)
	}
	w.answers[q.ID] = q.Options[idx]
	return nil
}

// Next advances past an answered question.
func (w *Wizard) Next() error {
	q, ok := w.Current()
	if !ok {
		return ErrFinished
	}
	if _, answered := w.answers[q.ID]; !answered {
		return ErrUnanswered
	}
	w.step++
	return nil
}

// Back returns to the previous question, keeping its answer. It is a no-op
// on the first question.
func (w *Wizard) Back() {
	if w.step > 0 {
		w.step--
	}
}

// Answers returns a copy of the recorded answers keyed by question id.
func (w *Wizard) Answers() map[string]string {
	out := make(map[string]string, len(w.answers))
	for k, v := range w.answers {
		out[k] = v
	}
	return out
}

// Fill answers every question from answers (keyed by question id) and walks
// to the end. It stops at the first missing or invalid answer.
func (w *Wizard) Fill(answers map[string]string) error {
	for !w.Done() {
		q, _ := w.Current()
		a, ok := answers[q.ID]
		if !ok {
			return fmt.Errorf("question %s: %w", q.ID, ErrUnanswered)
		}
		if err := w.Answer(a); err != nil {
			return fmt.Errorf("question %s: %w", q.ID, err)
		}
		if err := w.Next(); err != nil {
			return err
		}
	}
	return nil
}

func CompletionMessage(points int) string {
	return fmt.Sprintf("Thank you! You earned %d points for completing the survey.", points)
}
