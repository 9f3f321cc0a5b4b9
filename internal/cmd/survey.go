package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/loyaltydesk/internal/actions"
)

var surveyCmd = &cobra.Command{
	Use:   "survey",
	Short: "Answer the customer survey and earn points",
	Long: `Walks through the survey one question at a time. Answer with the option
number or its text, "b" goes back a question and "q" quits without saving.`,
	RunE: survey,
}

func init() {
	rootCmd.AddCommand(surveyCmd)
}

func survey(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := a.Loyalty.NewSurvey()
	if err != nil {
		return err
	}
	if err := runWizard(w, os.Stdin, os.Stdout); err != nil {
		return err
	}

	res, err := a.Loyalty.CompleteSurvey(cmd.Context(), w)
	if err != nil {
		return err
	}
	fmt.Printf("🎉 %s\n", res.Message)
	fmt.Printf("   💰 Balance: %s points\n", formatPoints(res.Balance))
	return nil
}

var errSurveyQuit = errors.New("survey cancelled")

// runWizard drives w from line input until every question is answered.
func runWizard(w *actions.Wizard, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for !w.Done() {
		q, _ := w.Current()
		fmt.Fprintf(out, "\n📝 Question %d of %d: %s\n", w.Step()+1, w.Total(), q.Prompt)
		for i, opt := range q.Options {
			fmt.Fprintf(out, "   %d. %s\n", i+1, opt)
		}
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read answer: %w", err)
			}
			return errSurveyQuit
		}
		input := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(input) {
		case "q":
			return errSurveyQuit
		case "b":
			w.Back()
			continue
		}
		if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(q.Options) {
			input = q.Options[n-1]
		}
		if err := w.Answer(input); err != nil {
			fmt.Fprintln(out, "⚠️  Pick one of the listed options")
			continue
		}
		if err := w.Next(); err != nil {
			return err
		}
	}
	return nil
}
