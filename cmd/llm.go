package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/linguaforge/linguaforge/internal/llm"
	"github.com/linguaforge/linguaforge/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM calls and generation runs",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		runID, _ := cmd.Flags().GetString("run")

		return withRuntime(cmd, func(rt *runtime) error {
			events, err := rt.store.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{
				Limit:   limit,
				Purpose: purpose,
				RunID:   runID,
			})
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}
			if len(events) == 0 {
				fmt.Println("No LLM events found.")
				return nil
			}

			fmt.Println(headStyle.Render(fmt.Sprintf("%-5s  %-19s  %-12s  %-28s  %-6s  %-6s  %-7s  %s",
				"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")))
			printRule(100)
			for _, e := range events {
				fmt.Printf("%-5d  %-19s  %-12s  %-28s  %-6d  %-6d  %-7d  %s\n",
					e.ID,
					e.Timestamp.Local().Format(time.DateTime),
					e.Purpose,
					truncate(e.Model, 28),
					e.InputTokens,
					e.OutputTokens,
					e.LatencyMs,
					mark(e.Success),
				)
			}
			return nil
		})
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View full request/response for an LLM event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		return withRuntime(cmd, func(rt *runtime) error {
			e, err := rt.store.EventRepo().GetLLMEvent(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get event: %w", err)
			}
			if e == nil {
				return fmt.Errorf("event %d not found", id)
			}

			printField("ID", e.ID)
			printField("Time", e.Timestamp.Local().Format(time.DateTime))
			printField("Provider", e.Provider)
			printField("Model", e.Model)
			printField("Purpose", e.Purpose)
			if e.RunID != "" {
				printField("Run", e.RunID)
			}
			printField("Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens))
			printField("Latency", fmt.Sprintf("%dms", e.LatencyMs))
			printField("Success", mark(e.Success))
			if e.ErrorMessage != "" {
				printField("Error", errStyle.Render(e.ErrorMessage))
			}

			for _, section := range []struct{ title, body string }{
				{"REQUEST", e.RequestBody},
				{"RESPONSE", e.ResponseBody},
			} {
				fmt.Println()
				printRule(60)
				fmt.Println(titleStyle.Render(section.title))
				printRule(60)
				if section.body == "" {
					fmt.Println("(not captured)")
					continue
				}
				fmt.Println(section.body)
			}
			return nil
		})
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			ctx := cmd.Context()
			stats, err := rt.store.EventRepo().LLMUsageByPurpose(ctx)
			if err != nil {
				return fmt.Errorf("query usage: %w", err)
			}
			if len(stats) == 0 {
				fmt.Println("No LLM usage recorded yet.")
				return nil
			}

			printTitle("Usage by Purpose")
			printRule(72)
			fmt.Println(headStyle.Render(fmt.Sprintf("%-16s  %6s  %10s  %10s  %10s  %8s",
				"Purpose", "Calls", "Input", "Output", "Total", "Avg Ms")))
			printRule(72)

			var totalCalls, totalIn, totalOut int
			for _, st := range stats {
				fmt.Printf("%-16s  %6d  %10d  %10d  %10d  %8d\n",
					st.Purpose, st.Calls, st.InputTokens, st.OutputTokens, st.InputTokens+st.OutputTokens, st.AvgLatencyMs)
				totalCalls += st.Calls
				totalIn += st.InputTokens
				totalOut += st.OutputTokens
			}
			printRule(72)
			fmt.Printf("%-16s  %6d  %10d  %10d  %10d\n", "TOTAL", totalCalls, totalIn, totalOut, totalIn+totalOut)

			modelUsage, err := rt.store.EventRepo().LLMUsageByModel(ctx)
			if err != nil {
				return fmt.Errorf("query model usage: %w", err)
			}
			if len(modelUsage) == 0 {
				return nil
			}

			fmt.Println()
			printTitle("Estimated Cost (USD)")
			printRule(72)
			fmt.Println(headStyle.Render(fmt.Sprintf("%-32s  %6s  %10s  %10s  %10s",
				"Model", "Calls", "Input", "Output", "Cost")))
			printRule(72)

			var (
				totalCost     float64
				unknownModels []string
			)
			for _, mu := range modelUsage {
				cost := llm.LookupCost(mu.Model)
				if cost == nil {
					unknownModels = append(unknownModels, mu.Model)
					fmt.Printf("%-32s  %6d  %10d  %10d  %10s\n",
						truncate(mu.Model, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, "?")
					continue
				}
				c := cost.Cost(mu.InputTokens, mu.OutputTokens)
				totalCost += c
				fmt.Printf("%-32s  %6d  %10d  %10d  %10s\n",
					truncate(mu.Model, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, formatCost(c))
			}

			printRule(72)
			label := "TOTAL"
			if len(unknownModels) > 0 {
				label = "TOTAL (partial)"
			}
			fmt.Printf("%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(totalCost))
			if len(unknownModels) > 0 {
				fmt.Printf("\nPricing unavailable for: %s\n", strings.Join(unknownModels, ", "))
			}
			return nil
		})
	},
}

var llmRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent generation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		intent, _ := cmd.Flags().GetString("intent")

		return withRuntime(cmd, func(rt *runtime) error {
			runs, err := rt.store.EventRepo().QueryGenerationRuns(cmd.Context(), store.QueryOpts{
				Limit:  limit,
				Intent: strings.ToUpper(intent),
			})
			if err != nil {
				return fmt.Errorf("query runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("No generation runs found.")
				return nil
			}

			fmt.Println(headStyle.Render(fmt.Sprintf("%-8s  %-19s  %-10s  %-6s  %-6s  %-5s  %-5s  %-7s  %-8s  %s",
				"Run", "Timestamp", "Intent", "Course", "Unit", "Calls", "Units", "Lessons", "Seconds", "State")))
			printRule(110)
			for _, r := range runs {
				state := okStyle.Render(r.FinalState)
				if r.ErrorMessage != "" {
					state = errStyle.Render(r.FinalState) + "  " + truncate(r.ErrorMessage, 40)
				}
				fmt.Printf("%-8s  %-19s  %-10s  %-6d  %-6d  %-5d  %-5d  %-7d  %-8.1f  %s\n",
					truncate(r.RunID, 8),
					r.Timestamp.Local().Format(time.DateTime),
					r.Intent,
					r.CourseID,
					r.UnitID,
					r.ModelCalls,
					r.UnitsCreated,
					r.LessonsCreated,
					r.Duration.Seconds(),
					state,
				)
			}
			return nil
		})
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (assessment, curriculum, adaptive)")
	llmListCmd.Flags().StringP("run", "r", "", "Filter by generation run ID")

	llmRunsCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	llmRunsCmd.Flags().StringP("intent", "i", "", "Filter by intent (assessment, curriculum, adaptive)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
	llmCmd.AddCommand(llmRunsCmd)
}
