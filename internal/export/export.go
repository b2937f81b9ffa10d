// Package export writes course content to spreadsheets for review by
// curriculum editors.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/linguaforge/linguaforge/internal/content"
)

const (
	sheetUnits      = "Units"
	sheetLessons    = "Lessons"
	sheetChallenges = "Challenges"
	sheetOptions    = "Options"
)

var headers = map[string][]any{
	sheetUnits:      {"Unit ID", "Order", "Kind", "Title", "Description", "Diagnostic Lesson"},
	sheetLessons:    {"Lesson ID", "Unit ID", "Order", "Title", "Challenges"},
	sheetChallenges: {"Challenge ID", "Lesson ID", "Order", "Type", "Topic", "Question", "Answer"},
	sheetOptions:    {"Option ID", "Challenge ID", "Text", "Correct", "Image", "Audio"},
}

// WriteCourse renders tree as an .xlsx workbook with one sheet per level.
func WriteCourse(w io.Writer, tree *content.CourseTree) error {
	f, err := build(tree)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveCourse writes the workbook for tree to path.
func SaveCourse(path string, tree *content.CourseTree) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCourse(out, tree); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func build(tree *content.CourseTree) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	sheets := []string{sheetUnits, sheetLessons, sheetChallenges, sheetOptions}
	for _, name := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("add sheet %s: %w", name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	s := &sheetWriter{f: f, rows: map[string]int{}}
	for _, name := range sheets {
		s.append(name, headers[name])
		if s.err == nil {
			s.err = f.SetRowStyle(name, 1, 1, bold)
		}
	}

	for _, ut := range tree.Units {
		u := ut.Unit
		s.append(sheetUnits, []any{u.ID, u.Order, string(u.Kind), u.Title, u.Description, blankZero(u.DiagnosticLessonID)})
		for _, lt := range ut.Lessons {
			l := lt.Lesson
			s.append(sheetLessons, []any{l.ID, l.UnitID, l.Order, l.Title, len(lt.Challenges)})
			for _, c := range lt.Challenges {
				s.append(sheetChallenges, []any{c.ID, c.LessonID, c.Order, string(c.Type), c.Topic, c.Question, answer(c)})
				for _, o := range c.Options {
					s.append(sheetOptions, []any{o.ID, o.ChallengeID, o.Text, o.Correct, o.ImageSrc, o.AudioSrc})
				}
			}
		}
	}
	if s.err != nil {
		f.Close()
		return nil, s.err
	}

	if idx, err := f.GetSheetIndex(sheetUnits); err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f    *excelize.File
	rows map[string]int
	err  error
}

func (s *sheetWriter) append(sheet string, values []any) {
	if s.err != nil {
		return
	}
	s.rows[sheet]++
	cell, err := excelize.CoordinatesToCellName(1, s.rows[sheet])
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetSheetRow(sheet, cell, &values); err != nil {
		s.err = fmt.Errorf("%s row %d: %w", sheet, s.rows[sheet], err)
	}
}

func answer(c content.Challenge) string {
	for _, o := range c.Options {
		if o.Correct {
			return o.Text
		}
	}
	return ""
}

func blankZero(id int64) any {
	if id == 0 {
		return ""
	}
	return id
}
