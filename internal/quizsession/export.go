package quizsession

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet   = "Summary"
	questionsSheet = "Questions"
)

// ExportResults writes results as an XLSX workbook with a summary sheet and one row
// per question.
func ExportResults(r *Results, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(questionsSheet); err != nil {
		return fmt.Errorf("failed to create questions sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	summary := [][]interface{}{
		{"Course", r.CourseID},
		{"Quiz type", string(r.QuizType)},
		{"Score", r.Score},
		{"Band", string(r.Band())},
		{"Correct", r.Correct},
		{"Scored questions", r.TotalScored},
		{"Total questions", r.TotalQuestions},
		{"Time used", (time.Duration(r.TimeUsed) * time.Second).String()},
		{"Submitted at", r.SubmittedAt.UTC().Format(time.RFC3339)},
		{"Auto submitted", r.AutoSubmitted},
		{"Certificate eligible", r.CertificateEligible()},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 22); err != nil {
		return err
	}

	header := []interface{}{"#", "Type", "Question", "Options", "Answer", "Flagged"}
	if err := f.SetSheetRow(questionsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(questionsSheet, "A1", "F1", bold); err != nil {
		return err
	}

	flagged := make(map[int]bool, len(r.FlaggedQuestions))
	for _, i := range r.FlaggedQuestions {
		flagged[i] = true
	}
	for i, q := range r.Questions {
		answer := ""
		if i < len(r.Answers) {
			answer = r.Answers[i]
		}
		row := []interface{}{i + 1, string(q.QuestionType), q.Question, strings.Join(q.Options, "\n"), answer, flagged[i]}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(questionsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write question %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(questionsSheet, "C", "E", 50); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
