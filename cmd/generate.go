package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/generation"
)

var assessCmd = &cobra.Command{
	Use:   "assess <course-id>",
	Short: "Create (or reuse) the diagnostic assessment for a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := parseID(args[0])
		if err != nil {
			return err
		}
		language, _ := cmd.Flags().GetString("language")
		refresh, _ := cmd.Flags().GetBool("refresh")

		return withOrchestrator(cmd, func(rt *runtime, o *generation.Orchestrator) error {
			res, err := o.CreateAssessment(cmd.Context(), generation.AssessmentRequest{
				CourseID: courseID,
				Language: language,
				Refresh:  refresh,
			})
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(res)
			}
			printTitle("Diagnostic assessment")
			printField("Unit", res.UnitID)
			printField("Lesson", res.LessonID)
			printField("Reused", res.Reused)
			return nil
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <course-id>",
	Short: "Analyze a learner's assessment results into a skill profile",
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
		lessonID, _ := cmd.Flags().GetInt64("lesson")

		return withOrchestrator(cmd, func(rt *runtime, o *generation.Orchestrator) error {
			profile, err := o.AnalyzeAssessment(cmd.Context(), user, courseID, lessonID)
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(profile)
			}
			printProfile(profile)
			return nil
		})
	},
}

var curriculumCmd = &cobra.Command{
	Use:   "curriculum <course-id>",
	Short: "Generate units for a learner from their assessment, weak areas first",
	Long: "Analyzes the learner's diagnostic assessment and generates a personalized curriculum from the " +
		"resulting profile. Pass --profile to use a saved profile instead.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := parseID(args[0])
		if err != nil {
			return err
		}
		user, err := requiredUser(cmd)
		if err != nil {
			return err
		}
		language, _ := cmd.Flags().GetString("language")
		units, _ := cmd.Flags().GetInt("units")
		lessons, _ := cmd.Flags().GetInt("lessons")
		lessonID, _ := cmd.Flags().GetInt64("lesson")
		profilePath, _ := cmd.Flags().GetString("profile")

		return withOrchestrator(cmd, func(rt *runtime, o *generation.Orchestrator) error {
			if profilePath == "" {
				res, err := o.AssessAndGenerate(cmd.Context(), generation.AssessAndGenerateRequest{
					UserID:         user,
					CourseID:       courseID,
					LessonID:       lessonID,
					Language:       language,
					UnitCount:      units,
					LessonsPerUnit: lessons,
				})
				if err != nil {
					return err
				}
				if asJSON(cmd) {
					return printJSON(res)
				}
				printProfile(res.Profile)
				fmt.Println()
				printCurriculum(&res.CurriculumResult)
				return nil
			}

			profile, err := readProfile(profilePath)
			if err != nil {
				return err
			}
			res, err := o.GenerateCurriculum(cmd.Context(), generation.CurriculumRequest{
				UserID:         user,
				CourseID:       courseID,
				Language:       language,
				Profile:        profile,
				UnitCount:      units,
				LessonsPerUnit: lessons,
			})
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(res)
			}
			printCurriculum(res)
			return nil
		})
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <course-id>",
	Short: "Generate course content for a level and topic list without a learner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := parseID(args[0])
		if err != nil {
			return err
		}
		language, _ := cmd.Flags().GetString("language")
		levelName, _ := cmd.Flags().GetString("level")
		topics, _ := cmd.Flags().GetStringSlice("topic")
		units, _ := cmd.Flags().GetInt("units")
		lessons, _ := cmd.Flags().GetInt("lessons")

		level, err := content.ParseLevel(levelName)
		if err != nil {
			return err
		}

		return withOrchestrator(cmd, func(rt *runtime, o *generation.Orchestrator) error {
			res, err := o.GenerateCourseContent(cmd.Context(), generation.CourseContentRequest{
				CourseID:       courseID,
				Language:       language,
				Level:          level,
				Topics:         topics,
				UnitCount:      units,
				LessonsPerUnit: lessons,
			})
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(res)
			}
			printCurriculum(res)
			return nil
		})
	},
}

var adaptCmd = &cobra.Command{
	Use:   "adapt <unit-id>",
	Short: "Append lessons to a unit aimed at the learner's recent mistakes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unitID, err := parseID(args[0])
		if err != nil {
			return err
		}
		user, err := requiredUser(cmd)
		if err != nil {
			return err
		}
		language, _ := cmd.Flags().GetString("language")

		return withOrchestrator(cmd, func(rt *runtime, o *generation.Orchestrator) error {
			res, err := o.GenerateAdaptiveLessons(cmd.Context(), generation.AdaptiveRequest{
				UserID:   user,
				UnitID:   unitID,
				Language: language,
			})
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(res)
			}
			printTitle("Adaptive lessons")
			printField("Lessons created", joinIDs(res.LessonsCreated))
			return nil
		})
	},
}

func printProfile(p *content.SkillProfile) {
	printTitle("Skill profile")
	printField("Level", p.Level)
	printField("Score", fmt.Sprintf("%d/100", p.Score))
	printField("Strengths", listOrNone(p.Strengths))
	printField("Weak areas", listOrNone(p.WeakAreas))
}

func printCurriculum(res *generation.CurriculumResult) {
	printTitle("Curriculum")
	printField("Units created", joinIDs(res.UnitsCreated))
	printField("Lessons created", res.LessonsCreated)
}

func readProfile(path string) (*content.SkillProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p content.SkillProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Level, err = content.ParseLevel(string(p.Level)); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

func parseID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}

func requiredUser(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return "", fmt.Errorf("--user is required")
	}
	return user, nil
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func init() {
	for _, c := range []*cobra.Command{assessCmd, analyzeCmd, curriculumCmd, generateCmd, adaptCmd} {
		c.Flags().Bool("json", false, "Print the result as JSON")
	}
	for _, c := range []*cobra.Command{assessCmd, curriculumCmd, generateCmd, adaptCmd} {
		c.Flags().StringP("language", "l", "", "Target language (defaults to the course language)")
	}
	for _, c := range []*cobra.Command{analyzeCmd, curriculumCmd, adaptCmd} {
		c.Flags().StringP("user", "u", "", "Learner ID")
	}

	assessCmd.Flags().Bool("refresh", false, "Replace the existing diagnostic lesson")

	analyzeCmd.Flags().Int64("lesson", 0, "Assessment lesson ID (defaults to the course's diagnostic lesson)")

	curriculumCmd.Flags().Int64("lesson", 0, "Assessment lesson ID (defaults to the course's diagnostic lesson)")
	curriculumCmd.Flags().String("profile", "", "Skill profile JSON file to generate from instead of the assessment")
	curriculumCmd.Flags().IntP("units", "n", 0, "Number of units (defaults to generation.default_unit_count)")
	curriculumCmd.Flags().Int("lessons", 0, "Lessons per unit (defaults to generation.lessons_per_unit)")

	generateCmd.Flags().String("level", "beginner", "Learner level: beginner, intermediate or advanced")
	generateCmd.Flags().StringSliceP("topic", "t", nil, "Focus topic, repeatable")
	generateCmd.Flags().IntP("units", "n", 0, "Number of units (defaults to generation.default_unit_count)")
	generateCmd.Flags().Int("lessons", 0, "Lessons per unit (defaults to generation.lessons_per_unit)")
}
