package cmd

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/matthieukhl/loyaltydesk/internal/actions"
	"github.com/matthieukhl/loyaltydesk/internal/models"
)

func testWizard(t *testing.T) *actions.Wizard {
	t.Helper()
	w, err := actions.NewWizard([]models.SurveyQuestion{
		{ID: "q1", Prompt: "How often?", Options: []string{"Weekly", "Monthly"}},
		{ID: "q2", Prompt: "Favorite?", Options: []string{"Grout", "Adhesive"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestRunWizard(t *testing.T) {
	w := testWizard(t)
	// invalid answer, then number, then back, then text answers
	in := strings.NewReader("7\n2\nb\nweekly\nadhesive\n")
	if err := runWizard(w, in, io.Discard); err != nil {
		t.Fatalf("runWizard: %v", err)
	}
	got := w.Answers()
	if got["q1"] != "Weekly" || got["q2"] != "Adhesive" {
		t.Errorf("answers = %v", got)
	}
}

func TestRunWizardQuit(t *testing.T) {
	for _, input := range []string{"q\n", "1\n"} {
		err := runWizard(testWizard(t), strings.NewReader(input), io.Discard)
		if !errors.Is(err, errSurveyQuit) {
			t.Errorf("input %q: err = %v", input, err)
		}
	}
}

func TestParseItems(t *testing.T) {
	lines, err := parseItems([]string{"prod-a:3", "prod-b:1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0].ProductID != "prod-a" || lines[0].Quantity != 3 {
		t.Errorf("lines = %+v", lines)
	}
	for _, bad := range []string{"prod-a", "prod-a:x", ":2"} {
		if _, err := parseItems([]string{bad}); err == nil {
			t.Errorf("parseItems(%q) succeeded", bad)
		}
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(50, 10); got != "[█████░░░░░]" {
		t.Errorf("progressBar = %q", got)
	}
}
