package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"classline/internal/app"
	"classline/internal/catalog"
	"classline/internal/config"
	"classline/internal/dashboard"
	"classline/internal/db"
	"classline/internal/server"
	classlinesdk "classline/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "cl",
	Short: "Classline CLI",
	Long: `Classline keeps a teacher's planning work and dashboard in one place.
- Workspace: your .classline directory with the database; config lives in classline.yml next to it.
- Lesson plans, assignments, resources and calendar events are the records.
- Deadline-flagged events feed the progress breakdown (completed / in progress / overdue / upcoming).
- The dashboard merges your session activity log with recent records into one feed.
- Audit log: diary of changes, view with 'cl log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CLASSLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(lessonCmd())
	rootCmd.AddCommand(assignmentCmd())
	rootCmd.AddCommand(resourceCmd())
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(statCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func lessonCmd() *cobra.Command {
	lesson := &cobra.Command{Use: "lesson", Short: "Manage lesson plans"}
	lesson.AddCommand(lessonAddCmd())
	lesson.AddCommand(lessonListCmd())
	lesson.AddCommand(lessonShowCmd())
	lesson.AddCommand(lessonDeleteCmd())
	return lesson
}

func lessonAddCmd() *cobra.Command {
	var id, title, subject, grade, objectives string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a lesson plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				p, err := s.Catalog.CreateLessonPlan(ctx, catalogLessonOptions(id, title, subject, grade, objectives))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "lesson plan id (optional)")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&subject, "subject", "", "subject")
	cmd.Flags().StringVar(&grade, "grade", "", "grade level")
	cmd.Flags().StringVar(&objectives, "objectives", "", "learning objectives")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func lessonListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List lesson plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items, err := s.Repo.ListLessonPlans(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Subject", "Grade", "Updated"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Title, p.Subject, p.GradeLevel, p.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows (0 = all)")
	return cmd
}

func lessonShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a lesson plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				p, err := s.Repo.GetLessonPlan(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func lessonDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a lesson plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return s.Catalog.DeleteLessonPlan(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func assignmentCmd() *cobra.Command {
	a := &cobra.Command{Use: "assignment", Short: "Manage assignments"}
	a.AddCommand(assignmentAddCmd())
	a.AddCommand(assignmentListCmd())
	a.AddCommand(assignmentStatusCmd())
	a.AddCommand(assignmentGradeCmd())
	a.AddCommand(assignmentDeleteCmd())
	return a
}

func assignmentAddCmd() *cobra.Command {
	var id, title, subject, status string
	var points int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an assignment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				a, err := s.Catalog.CreateAssignment(ctx, catalogAssignmentOptions(id, title, subject, status, points))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "assignment id (optional)")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&subject, "subject", "", "subject")
	cmd.Flags().StringVar(&status, "status", "draft", "status (draft, assigned)")
	cmd.Flags().IntVar(&points, "points", 0, "total points")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func assignmentListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items, err := s.Repo.ListAssignments(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Subject", "Status", "Points", "Updated"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.Title, a.Subject, a.Status, a.TotalPoints, a.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows (0 = all)")
	return cmd
}

func assignmentStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move an assignment through its lifecycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				a, err := s.Catalog.SetAssignmentStatus(ctx, args[0], args[1], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func assignmentGradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade <id>",
		Short: "Mark an assignment graded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				a, err := s.Catalog.SetAssignmentStatus(ctx, args[0], "graded", viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func assignmentDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return s.Catalog.DeleteAssignment(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func resourceCmd() *cobra.Command {
	r := &cobra.Command{Use: "resource", Short: "Manage teaching resources"}
	r.AddCommand(resourceAddCmd())
	r.AddCommand(resourceListCmd())
	r.AddCommand(resourceDeleteCmd())
	return r
}

func resourceAddCmd() *cobra.Command {
	var id, title, kind, url, subject string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				res, err := s.Catalog.CreateResource(ctx, catalogResourceOptions(id, title, kind, url, subject))
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "resource id (optional)")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&kind, "kind", "", "kind (worksheet, video, link)")
	cmd.Flags().StringVar(&url, "url", "", "url")
	cmd.Flags().StringVar(&subject, "subject", "", "subject")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func resourceListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items, err := s.Repo.ListResources(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Kind", "Subject", "Created"})
				for _, res := range items {
					tw.AppendRow(table.Row{res.ID, res.Title, res.Kind, res.Subject, res.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows (0 = all)")
	return cmd
}

func resourceDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return s.Catalog.DeleteResource(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func eventCmd() *cobra.Command {
	ev := &cobra.Command{Use: "event", Short: "Manage calendar events and deadlines"}
	ev.AddCommand(eventAddCmd())
	ev.AddCommand(eventListCmd())
	ev.AddCommand(eventToggleCmd())
	ev.AddCommand(eventDeleteCmd())
	return ev
}

func eventAddCmd() *cobra.Command {
	var id, title, date, evType, label string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a calendar event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				ev, err := s.Catalog.CreateCalendarEvent(ctx, catalogEventOptions(id, title, date, evType, label))
				if err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "event id (optional)")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&date, "date", "", "date (RFC3339)")
	cmd.Flags().StringVar(&evType, "type", "other", "type (lesson, meeting, deadline, other)")
	cmd.Flags().StringVar(&label, "label", "", "free-form label, drives deadline category and priority")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func eventListCmd() *cobra.Command {
	var limit int
	var deadlinesOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List calendar events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if deadlinesOnly {
					items, err := s.Dashboard.Deadlines(ctx)
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(items)
					}
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"ID", "Task", "Due", "Done", "Category", "Priority"})
					for _, d := range items {
						tw.AppendRow(table.Row{d.ID, d.Task, d.DueDate, d.Completed, d.Category, d.Priority})
					}
					tw.Render()
					return nil
				}
				items, err := s.Repo.ListCalendarEvents(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Date", "Type", "Done"})
				for _, ev := range items {
					tw.AppendRow(table.Row{ev.ID, ev.Title, ev.Date, ev.Type, ev.Completed})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows (0 = all)")
	cmd.Flags().BoolVar(&deadlinesOnly, "deadlines", false, "show only deadline items with category and priority")
	return cmd
}

func eventToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Toggle an event's completed state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				ev, err := s.Catalog.ToggleEventCompleted(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	return cmd
}

func eventDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a calendar event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return s.Catalog.DeleteCalendarEvent(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func dashboardCmd() *cobra.Command {
	d := &cobra.Command{Use: "dashboard", Short: "Activity feed and progress"}
	d.AddCommand(dashboardActivityCmd())
	d.AddCommand(dashboardProgressCmd())
	d.AddCommand(dashboardSyncCmd())
	d.AddCommand(dashboardLogCmd())
	d.AddCommand(dashboardClearCmd())
	return d
}

func dashboardActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the unified activity feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items, err := s.Dashboard.Aggregate(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Category", "Text"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.Timestamp, it.Category, it.Text})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func dashboardProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show the deadline progress breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				breakdown, err := s.Dashboard.ComputeProgress(ctx)
				if err != nil {
					return err
				}
				out := map[string]any{
					"breakdown":       breakdown,
					"weekly_progress": dashboard.WeeklyProgress(breakdown),
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Completed:   %d\n", breakdown.Completed)
				fmt.Printf("In progress: %d\n", breakdown.InProgress)
				fmt.Printf("Overdue:     %d\n", breakdown.Overdue)
				fmt.Printf("Upcoming:    %d\n", breakdown.Upcoming)
				fmt.Printf("Weekly progress: %d%%\n", dashboard.WeeklyProgress(breakdown))
				return nil
			})
		},
	}
	return cmd
}

func dashboardSyncCmd() *cobra.Command {
	var remoteURL, bearer string
	var noMock, realOnly, forceReal, wait bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Force a dashboard sync and recompute",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				s.Syncer.Flags = dashboard.SyncFlags{
					NoMockData:      noMock,
					UseRealDataOnly: realOnly,
					ForceRealData:   forceReal,
				}
				if remoteURL != "" {
					s.Syncer.Primary = dashboard.DirectSync{BaseURL: remoteURL, Token: bearer}
					s.Syncer.Secondary = sdkSync{client: &classlinesdk.Client{
						BaseURL:     remoteURL,
						BearerToken: bearer,
						ActorID:     viper.GetString("actor-id"),
					}}
				}
				s.Syncer.OnUpdate = func(u dashboard.Update) {
					tag := "sync"
					if u.Delayed {
						tag = "delayed refetch"
					}
					fmt.Printf("[%s] feed=%d deadlines=%d progress=%d%%\n",
						tag, len(u.Feed), len(u.Deadlines), dashboard.WeeklyProgress(u.Progress))
				}
				if err := s.Syncer.ForceSync(ctx); err != nil {
					return err
				}
				if wait {
					time.Sleep(s.Syncer.Delay + 500*time.Millisecond)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&remoteURL, "remote-url", "", "sync against a remote Classline API instead of the local workspace")
	cmd.Flags().StringVar(&bearer, "bearer", "", "bearer token for the remote API")
	cmd.Flags().BoolVar(&noMock, "no-mock-data", false, "backend flag, passed through unchanged")
	cmd.Flags().BoolVar(&realOnly, "use-real-data-only", false, "backend flag, passed through unchanged")
	cmd.Flags().BoolVar(&forceReal, "force-real-data", false, "backend flag, passed through unchanged")
	cmd.Flags().BoolVar(&wait, "wait", true, "wait for the delayed deadline refetch before exiting")
	return cmd
}

func dashboardLogCmd() *cobra.Command {
	var category, details string
	cmd := &cobra.Command{
		Use:   "log <text>",
		Short: "Record an action in the session activity log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				item := s.Dashboard.Log.Add(args[0], category, details)
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "feed category")
	cmd.Flags().StringVar(&details, "details", "", "extra details")
	return cmd
}

func dashboardClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the session activity log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				s.Dashboard.Log.Clear()
				return nil
			})
		},
	}
	return cmd
}

func statCmd() *cobra.Command {
	st := &cobra.Command{Use: "stat", Short: "Dashboard statistics"}
	st.AddCommand(statListCmd())
	st.AddCommand(statShowCmd())
	st.AddCommand(statSetCmd())
	return st
}

func statListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items, err := s.Repo.ListStats(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func statShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Show one statistic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				stat, err := s.Repo.GetStat(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(stat)
			})
		},
	}
	return cmd
}

func statSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a statistic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("value must be an integer: %w", err)
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				stat, err := s.Catalog.UpdateStat(ctx, args[0], value, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(stat)
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Audit log"}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	var types []string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				events, err := s.Repo.ListEvents(ctx, n, types)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringArrayVar(&types, "type", []string{}, "event type filter (repeatable)")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configImportCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return printJSONOrTable(s.Config)
			})
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default classline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if id == "" {
				id = "classroom"
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(id)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "workspace id")
	return cmd
}

func configImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import config from a YAML file into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(filePath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(filePath)
			if err != nil {
				return err
			}
			workspace := viper.GetString("workspace")
			if err := os.WriteFile(config.Path(workspace), data, 0o644); err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowLegacyHeader bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			s, err := app.Open(workspace)
			if err != nil {
				return err
			}
			defer s.Close()
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("CLASSLINE_JWT_SECRET"),
				AllowLegacyActorHeader: allowLegacyHeader,
			}
			if authCfg.JWTSecret == "" && !allowLegacyHeader {
				return fmt.Errorf("CLASSLINE_JWT_SECRET is required for bearer auth (or pass --allow-legacy-actor-header)")
			}
			handler, err := server.New(server.Config{
				Catalog:   s.Catalog,
				Dashboard: s.Dashboard,
				Syncer:    s.Syncer,
				BasePath:  basePath,
				Auth:      authCfg,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Classline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowLegacyHeader, "allow-legacy-actor-header", false, "accept the deprecated X-Actor-Id header")
	return cmd
}

// --- helpers ---

// sdkSync runs the forced sync through the standard API client, the
// second leg of the dual-path invalidation.
type sdkSync struct {
	client *classlinesdk.Client
}

func (s sdkSync) Sync(ctx context.Context, flags dashboard.SyncFlags) error {
	_, err := s.client.Sync(ctx, flags.NoMockData, flags.UseRealDataOnly, flags.ForceRealData)
	return err
}

func withSession(ctx context.Context, fn func(context.Context, *app.Session) error) error {
	s, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func catalogLessonOptions(id, title, subject, grade, objectives string) catalog.LessonPlanOptions {
	return catalog.LessonPlanOptions{
		ID:         id,
		Title:      title,
		Subject:    subject,
		GradeLevel: grade,
		Objectives: objectives,
		ActorID:    viper.GetString("actor-id"),
	}
}

func catalogAssignmentOptions(id, title, subject, status string, points int) catalog.AssignmentOptions {
	return catalog.AssignmentOptions{
		ID:          id,
		Title:       title,
		Subject:     subject,
		Status:      status,
		TotalPoints: points,
		ActorID:     viper.GetString("actor-id"),
	}
}

func catalogResourceOptions(id, title, kind, url, subject string) catalog.ResourceOptions {
	return catalog.ResourceOptions{
		ID:      id,
		Title:   title,
		Kind:    kind,
		URL:     url,
		Subject: subject,
		ActorID: viper.GetString("actor-id"),
	}
}

func catalogEventOptions(id, title, date, evType, label string) catalog.CalendarEventOptions {
	return catalog.CalendarEventOptions{
		ID:      id,
		Title:   title,
		Date:    date,
		Type:    evType,
		Label:   label,
		ActorID: viper.GetString("actor-id"),
	}
}
