package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linguaforge/linguaforge/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <course-id>",
	Short: "Export a course's content to an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := parseID(args[0])
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = fmt.Sprintf("course-%d.xlsx", courseID)
		}

		return withRuntime(cmd, func(rt *runtime) error {
			tree, err := rt.store.Content().CourseTree(cmd.Context(), courseID)
			if err != nil {
				return err
			}
			if err := export.SaveCourse(out, tree); err != nil {
				return err
			}
			fmt.Printf("Exported %d units and %d lessons to %s\n", len(tree.Units), tree.LessonCount(), out)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file (default course-<id>.xlsx)")
}
