package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/quizsession"
)

var errInputEnded = errors.New("input ended before the last question; the attempt was not submitted")

const takeHelp = `Type an answer and press enter to save it and move on.
Multiple choice questions take the option letter.
  :next    go to the next question
  :flag    mark or unmark the question for review
  :time    show the time left
  :submit  finish the attempt (on the last question)
  :help    show this message`

// runAttempt drives a quiz attempt from line oriented input until it is submitted or
// the countdown expires. Input ending on the last question submits.
func runAttempt(store *quizsession.Store, courseID uint, quizType quizsession.QuizType, in io.Reader, out io.Writer) error {
	expired := make(chan *quizsession.Results, 1)
	ctrl := quizsession.NewController(store, quizsession.Config{
		OnSubmit: func(r *quizsession.Results) {
			if r.AutoSubmitted {
				expired <- r
			}
		},
	})

	if err := ctrl.Load(courseID, quizType); err != nil {
		switch {
		case errors.Is(err, quizsession.ErrQuizDataNotFound):
			return fmt.Errorf("%w; run quizctl generate --course %d --type %s first", err, courseID, quizType)
		case errors.Is(err, quizsession.ErrQuizDataExpired):
			return fmt.Errorf("%w; generate a new one", err)
		}
		return err
	}

	fmt.Fprintf(out, "Course %d %s quiz, time limit %s\n", courseID, quizType, ctrl.Remaining())
	fmt.Fprintln(out, takeHelp)
	if err := ctrl.Start(); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	show := true
	for {
		if show {
			if err := printPosition(out, ctrl); err != nil {
				return err
			}
		}
		show = true

		select {
		case r := <-expired:
			fmt.Fprintln(out, "\nTime is up, the quiz was submitted automatically.")
			printResults(out, r)
			return ctrl.Err()

		case line, ok := <-lines:
			if !ok {
				if done, err := finish(out, ctrl); done {
					return err
				}
				return errInputEnded
			}
			line = strings.TrimSpace(line)

			switch line {
			case ":submit", ":s":
				if done, err := finish(out, ctrl); done {
					return err
				}
				show = false
			case ":next", ":n":
				if err := ctrl.Next(); err != nil {
					if errors.Is(err, quizsession.ErrInvalidTransition) {
						continue
					}
					fmt.Fprintln(out, err)
					show = false
				}
			case ":flag", ":f":
				flagged, err := ctrl.ToggleFlag()
				if err != nil {
					continue
				}
				if flagged {
					fmt.Fprintln(out, "Flagged for review")
				} else {
					fmt.Fprintln(out, "Flag removed")
				}
				show = false
			case ":time", ":t":
				fmt.Fprintf(out, "%s left\n", ctrl.Remaining().Round(time.Second))
				show = false
			case ":help", ":h":
				fmt.Fprintln(out, takeHelp)
				show = false
			case "":
				show = false
			default:
				if err := answer(out, ctrl, line); err != nil {
					return err
				}
			}
		}
	}
}

// answer records input for the current question and advances unless it is the last.
func answer(out io.Writer, ctrl *quizsession.Controller, input string) error {
	pos, err := ctrl.Current()
	if err != nil {
		// Submitted by the timer between reads.
		return nil
	}

	value := input
	if pos.Type == string(models.MultipleChoice) {
		var ok bool
		if value, ok = pickOption(pos.Options, input); !ok {
			fmt.Fprintf(out, "Choose an option letter between A and %c\n", 'A'+rune(len(pos.Options)-1))
			return nil
		}
	}

	if err := ctrl.SetAnswer(value); err != nil {
		return nil
	}
	if pos.IsLast {
		fmt.Fprintln(out, "That was the last question. Type :submit to finish.")
		return nil
	}
	if err := ctrl.Next(); err != nil && !errors.Is(err, quizsession.ErrInvalidTransition) {
		return err
	}
	return nil
}

// pickOption maps an option letter to the option text.
func pickOption(options []string, input string) (string, bool) {
	if len(input) != 1 {
		return "", false
	}
	i := int(strings.ToUpper(input)[0]) - 'A'
	if i < 0 || i >= len(options) {
		return "", false
	}
	return options[i], true
}

// finish submits the attempt. It reports false when the attempt is still running
// because the last question has not been reached.
func finish(out io.Writer, ctrl *quizsession.Controller) (bool, error) {
	results, err := ctrl.Submit()
	switch {
	case errors.Is(err, quizsession.ErrNotLastQuestion):
		fmt.Fprintln(out, err)
		return false, nil
	case errors.Is(err, quizsession.ErrInvalidTransition):
		// The timer got there first.
		results = ctrl.Results()
		err = ctrl.Err()
	}
	if results == nil {
		return true, err
	}
	printResults(out, results)
	return true, err
}

func printPosition(out io.Writer, ctrl *quizsession.Controller) error {
	pos, err := ctrl.Current()
	if err != nil {
		return nil
	}
	flag := ""
	if pos.Flagged {
		flag = " [flagged]"
	}
	fmt.Fprintf(out, "\nQuestion %d of %d%s (%s left)\n%s\n", pos.Index+1, pos.Total, flag,
		ctrl.Remaining().Round(time.Second), pos.Question)
	for _, o := range pos.Options {
		fmt.Fprintf(out, "  %s\n", o)
	}
	if pos.Answer != "" {
		fmt.Fprintf(out, "Current answer: %s\n", pos.Answer)
	}
	fmt.Fprint(out, "> ")
	return nil
}

func printResults(out io.Writer, r *quizsession.Results) {
	fmt.Fprintf(out, "\nScore: %d%% (%d of %d multiple choice answered)\n", r.Score, r.Correct, r.TotalScored)
	fmt.Fprintf(out, "Rating: %s\n", strings.ReplaceAll(string(r.Band()), "_", " "))
	fmt.Fprintf(out, "Time used: %s\n", time.Duration(r.TimeUsed)*time.Second)
	if open := r.TotalQuestions - r.TotalScored; open > 0 {
		fmt.Fprintf(out, "%d open ended answers are waiting for review\n", open)
	}
	if len(r.FlaggedQuestions) > 0 {
		nums := make([]string, len(r.FlaggedQuestions))
		for i, q := range r.FlaggedQuestions {
			nums[i] = fmt.Sprint(q + 1)
		}
		fmt.Fprintf(out, "Flagged: %s\n", strings.Join(nums, ", "))
	}
	if r.CertificateEligible() {
		fmt.Fprintln(out, "You earned a certificate for this course.")
	}
}
