package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	Run: func(cmd *cobra.Command, args []string) {
		runProjects()
	},
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show projects as calendar events",
	Run: func(cmd *cobra.Command, args []string) {
		runCalendar()
	},
}

func runProjects() {
	ctx := context.Background()
	a := authenticatedApp(ctx)

	if !a.perms.CanViewProjects() {
		fail(fmt.Errorf("you do not have permission to view projects"))
	}
	if err := a.projects.Fetch(ctx); err != nil {
		os.Exit(1)
	}

	projects := a.projects.Projects()
	if len(projects) == 0 {
		fmt.Println("(no projects)")
		return
	}
	for _, p := range projects {
		fmt.Printf("%-6d %-30s %s\n", p.ID, p.Name, p.Status)
	}
}

func runCalendar() {
	ctx := context.Background()
	a := authenticatedApp(ctx)

	if !a.perms.CanViewProjects() {
		fail(fmt.Errorf("you do not have permission to view projects"))
	}
	if err := a.projects.Fetch(ctx); err != nil {
		os.Exit(1)
	}

	for _, event := range a.projects.CalendarEvents() {
		fmt.Printf("%s  %s -> %s  %s (%s)\n",
			event.Color,
			event.Start.Format("2006-01-02"),
			event.End.Format("2006-01-02"),
			event.Title,
			fmt.Sprintf("#%d", event.ID))
	}
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(calendarCmd)
}
