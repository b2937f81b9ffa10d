package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/store"
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Manage courses",
}

var courseCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")
		image, _ := cmd.Flags().GetString("image")
		if strings.TrimSpace(language) == "" {
			return fmt.Errorf("--language is required")
		}

		return withRuntime(cmd, func(rt *runtime) error {
			id, err := rt.store.Content().CreateCourse(cmd.Context(), &content.Course{
				Title:    args[0],
				Language: language,
				ImageSrc: image,
			})
			if err != nil {
				return fmt.Errorf("create course: %w", err)
			}
			fmt.Printf("Created course %d (%s)\n", id, args[0])
			return nil
		})
	},
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			courses, err := rt.store.Content().ListCourses(cmd.Context())
			if err != nil {
				return fmt.Errorf("list courses: %w", err)
			}
			if len(courses) == 0 {
				fmt.Println("No courses found.")
				return nil
			}
			fmt.Println(headStyle.Render(fmt.Sprintf("%-5s  %-32s  %s", "ID", "Title", "Language")))
			printRule(56)
			for _, c := range courses {
				fmt.Printf("%-5d  %-32s  %s\n", c.ID, truncate(c.Title, 32), c.Language)
			}
			return nil
		})
	},
}

var courseShowCmd = &cobra.Command{
	Use:   "show <course-id>",
	Short: "Show a course's units, lessons and challenge counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(rt *runtime) error {
			tree, err := rt.store.Content().CourseTree(cmd.Context(), courseID)
			if err != nil {
				return err
			}
			printTitle(fmt.Sprintf("%s (%s)", tree.Course.Title, tree.Course.Language))
			if len(tree.Units) == 0 {
				fmt.Println("No units yet.")
				return nil
			}
			for _, ut := range tree.Units {
				u := ut.Unit
				label := fmt.Sprintf("Unit %d", u.Order)
				if u.Kind == content.UnitAssessment {
					label = "Assessment"
				}
				fmt.Println(headStyle.Render(fmt.Sprintf("%s  [%d] %s", label, u.ID, u.Title)))
				for _, lt := range ut.Lessons {
					diag := ""
					if lt.Lesson.ID == u.DiagnosticLessonID {
						diag = " (diagnostic)"
					}
					fmt.Printf("  %d. [%d] %s  %d challenges%s\n",
						lt.Lesson.Order, lt.Lesson.ID, lt.Lesson.Title, len(lt.Challenges), diag)
				}
			}
			return nil
		})
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress <course-id>",
	Short: "Show a learner's progress and skill profile for a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := parseID(args[0])
		if err != nil {
			return err
		}
		user, err := requiredUser(cmd)
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(rt *runtime) error {
			if _, err := rt.store.Content().GetCourse(cmd.Context(), courseID); err != nil {
				return err
			}
			vocab, err := rt.vocabulary()
			if err != nil {
				return err
			}
			analyzer := assessment.NewAnalyzer(rt.cfg.Analyzer, assessment.NewKeywordExtractor(vocab))
			report, err := assessment.NewReporter(rt.store.Progress(), analyzer).Progress(cmd.Context(), user, courseID)
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(report)
			}
			printTitle("Progress")
			printField("Lessons", fmt.Sprintf("%d/%d completed", report.CompletedLessons, report.TotalLessons))
			printField("Level", report.SkillLevel)
			printField("Score", fmt.Sprintf("%d/100", report.Score))
			printField("Strengths", listOrNone(report.Strengths))
			printField("Weak areas", listOrNone(report.WeakAreas))
			return nil
		})
	},
}

var progressRecordCmd = &cobra.Command{
	Use:   "record <challenge-id>",
	Short: "Record a learner's result on a challenge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		challengeID, err := parseID(args[0])
		if err != nil {
			return err
		}
		user, err := requiredUser(cmd)
		if err != nil {
			return err
		}
		wrong, _ := cmd.Flags().GetBool("wrong")
		spent, _ := cmd.Flags().GetDuration("time")

		return withRuntime(cmd, func(rt *runtime) error {
			err := rt.store.Progress().RecordProgress(cmd.Context(), store.ProgressRecord{
				UserID:      user,
				ChallengeID: challengeID,
				Completed:   !wrong,
				TimeSpent:   spent,
				CompletedAt: time.Now(),
			})
			if err != nil {
				return fmt.Errorf("record progress: %w", err)
			}
			fmt.Printf("Recorded challenge %d for %s %s\n", challengeID, user, mark(!wrong))
			return nil
		})
	},
}

func init() {
	courseCreateCmd.Flags().StringP("language", "l", "", "Language the course teaches")
	courseCreateCmd.Flags().String("image", "", "Course image URL")

	courseCmd.AddCommand(courseCreateCmd)
	courseCmd.AddCommand(courseListCmd)
	courseCmd.AddCommand(courseShowCmd)

	progressCmd.PersistentFlags().StringP("user", "u", "", "Learner ID")
	progressCmd.Flags().Bool("json", false, "Print the report as JSON")
	progressRecordCmd.Flags().Bool("wrong", false, "Record the answer as incorrect")
	progressRecordCmd.Flags().Duration("time", 0, "Time spent on the challenge")
	progressCmd.AddCommand(progressRecordCmd)
}
