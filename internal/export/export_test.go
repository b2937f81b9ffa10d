package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/linguaforge/linguaforge/internal/content"
)

func sampleTree() *content.CourseTree {
	options := func(challengeID int64, texts ...string) []content.ChallengeOption {
		opts := make([]content.ChallengeOption, len(texts))
		for i, t := range texts {
			opts[i] = content.ChallengeOption{ID: challengeID*10 + int64(i), ChallengeID: challengeID, Text: t, Correct: i == 0}
		}
		return opts
	}
	return &content.CourseTree{
		Course: content.Course{ID: 1, Title: "Spanish", Language: "Spanish"},
		Units: []content.UnitTree{
			{
				Unit: content.Unit{ID: 1, CourseID: 1, Title: content.AssessmentUnitTitle, Kind: content.UnitAssessment, DiagnosticLessonID: 1},
				Lessons: []content.LessonTree{{
					Lesson: content.Lesson{ID: 1, UnitID: 1, Title: "Placement", Order: 1},
					Challenges: []content.Challenge{
						{ID: 1, LessonID: 1, Type: content.ChallengeSelect, Question: "Which one is 'red'?", Order: 1, Topic: "colors", Options: options(1, "rojo", "azul")},
						{ID: 2, LessonID: 1, Type: content.ChallengeAssist, Question: "'the man'", Order: 2, Topic: "family", Options: options(2, "el hombre", "la mujer", "el niño")},
					},
				}},
			},
			{
				Unit: content.Unit{ID: 2, CourseID: 1, Title: "Verbs", Order: 1, Kind: content.UnitContent},
				Lessons: []content.LessonTree{{
					Lesson: content.Lesson{ID: 2, UnitID: 2, Title: "Eating", Order: 1},
					Challenges: []content.Challenge{
						{ID: 3, LessonID: 2, Type: content.ChallengeSelect, Question: "Which one is 'to eat'?", Order: 1, Topic: "verbs", Options: options(3, "comer", "beber")},
					},
				}},
			},
		},
	}
}

func TestWriteCourse(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCourse(&buf, sampleTree()); err != nil {
		t.Fatalf("WriteCourse: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	want := []string{sheetUnits, sheetLessons, sheetChallenges, sheetOptions}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sheets = %v, want %v", got, want)
		}
	}

	counts := map[string]int{sheetUnits: 3, sheetLessons: 3, sheetChallenges: 4, sheetOptions: 8}
	for sheet, n := range counts {
		rows, err := f.GetRows(sheet)
		if err != nil {
			t.Fatalf("GetRows(%s): %v", sheet, err)
		}
		if len(rows) != n {
			t.Errorf("%s has %d rows, want %d", sheet, len(rows), n)
		}
	}

	rows, _ := f.GetRows(sheetChallenges)
	if rows[0][0] != "Challenge ID" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[2][3] != "ASSIST" || rows[2][4] != "family" || rows[2][6] != "el hombre" {
		t.Errorf("challenge row = %v", rows[2])
	}

	units, _ := f.GetRows(sheetUnits)
	if units[1][2] != string(content.UnitAssessment) || units[1][5] != "1" {
		t.Errorf("assessment unit row = %v", units[1])
	}
	if len(units[2]) > 5 && units[2][5] != "" {
		t.Errorf("content unit should have no diagnostic lesson: %v", units[2])
	}
}

func TestSaveCourse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "course.xlsx")
	if err := SaveCourse(path, sampleTree()); err != nil {
		t.Fatalf("SaveCourse: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	v, err := f.GetCellValue(sheetOptions, "C2")
	if err != nil || v != "rojo" {
		t.Fatalf("C2 = %q, %v", v, err)
	}
}

func TestSaveCourse_BadPath(t *testing.T) {
	if err := SaveCourse(filepath.Join(t.TempDir(), "missing", "course.xlsx"), sampleTree()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
