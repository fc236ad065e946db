package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/etraincon/learning-service/internal/quizsession"
)

// cmdGenerate fetches a new question set and stores it for the take command.
type cmdGenerate struct {
	Course uint   `long:"course" required:"true" description:"Course ID"`
	Type   string `long:"type" default:"trial" choice:"trial" choice:"final" description:"Quiz type"`
}

func (c *cmdGenerate) Execute(args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}
	store, err := newStore()
	if err != nil {
		return err
	}

	fmt.Printf("Generating quiz for course %d, this can take a few minutes...\n", c.Course)
	quiz, err := client.GenerateQuiz(context.Background(), c.Course)
	if err != nil {
		return err
	}

	err = store.SaveQuizData(&quizsession.QuizData{
		CourseID:  quiz.CourseID,
		QuizType:  quizsession.QuizType(c.Type),
		Questions: quiz.Quizzes,
		SavedAt:   time.Now(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Stored %d multiple choice and %d open ended questions. Run: quizctl take --course %d --type %s\n",
		quiz.Counts.MultipleChoice, quiz.Counts.OpenEnded, quiz.CourseID, c.Type)
	return nil
}

// cmdTake runs an attempt interactively.
type cmdTake struct {
	Course uint   `long:"course" required:"true" description:"Course ID"`
	Type   string `long:"type" default:"trial" choice:"trial" choice:"final" description:"Quiz type"`
}

func (c *cmdTake) Execute(args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	return runAttempt(store, c.Course, quizsession.QuizType(c.Type), os.Stdin, os.Stdout)
}

// cmdResults prints the last submitted results. They can be read only once.
type cmdResults struct {
	Export string `long:"export" description:"Also write the results to this .xlsx file"`
}

func (c *cmdResults) Execute(args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	results, err := store.TakeResults()
	if errors.Is(err, quizsession.ErrNoResults) {
		return errors.New("no results to show; take a quiz first")
	}
	if err != nil {
		return err
	}

	printResults(os.Stdout, results)

	if c.Export != "" {
		f, err := os.Create(c.Export)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := quizsession.ExportResults(results, f); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", c.Export)
	}
	return nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
