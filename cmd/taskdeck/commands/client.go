package commands

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taskdeck/core/internal/adapters/storage/bolt"
	"github.com/taskdeck/core/internal/client"
	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/config"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// clientEnv bundles everything a client command needs: config, the durable
// client-side store, the rehydrated session and an API client carrying its
// token.
type clientEnv struct {
	cfg     *config.Config
	logger  *logger.Logger
	store   *bolt.Store
	session *client.SessionState
	api     *client.Client
}

func newClientEnv(ctx context.Context) (*clientEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := bolt.Open(cfg.Client.StatePath, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to open client state: %w", err)
	}

	session, err := client.NewSessionState(ctx, store, appLogger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	api := client.New(cfg.Client)
	if s := session.Current(); s.Authenticated() {
		api.SetToken(s.Token)
	}

	return &clientEnv{
		cfg:     cfg,
		logger:  appLogger,
		store:   store,
		session: session,
		api:     api,
	}, nil
}

func (e *clientEnv) Close() {
	_ = e.store.Close()
	_ = e.logger.Sync()
}

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Run: func(cmd *cobra.Command, args []string) {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if username == "" || password == "" {
				log.Fatal("Username and password are required")
			}

			ctx := cmd.Context()
			env, err := newClientEnv(ctx)
			if err != nil {
				log.Fatalf("Failed to initialize client: %v", err)
			}
			defer env.Close()

			resp, err := env.api.Login(ctx, username, password)
			if err != nil {
				log.Fatalf("Login failed: %v", err)
			}

			if err := env.session.Login(ctx, resp.Token, resp.User); err != nil {
				log.Fatalf("Failed to store session: %v", err)
			}

			if resp.User != nil {
				fmt.Printf("Logged in as %s\n", resp.User.Username)
			} else {
				fmt.Println("Logged in")
			}
		},
	}

	loginCmd.Flags().StringP("username", "u", "", "Username (required)")
	loginCmd.Flags().StringP("password", "p", "", "Password (required)")

	return loginCmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			env, err := newClientEnv(ctx)
			if err != nil {
				log.Fatalf("Failed to initialize client: %v", err)
			}
			defer env.Close()

			if err := env.session.Logout(ctx); err != nil {
				log.Fatalf("Logout failed: %v", err)
			}

			fmt.Println("Logged out")
		},
	}
}

// NewWhoamiCommand creates the whoami command
func NewWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session identity",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			env, err := newClientEnv(ctx)
			if err != nil {
				log.Fatalf("Failed to initialize client: %v", err)
			}
			defer env.Close()

			session := env.session.Current()
			if !session.Authenticated() {
				fmt.Println("Not logged in")
				return
			}

			if session.User != nil {
				fmt.Printf("%s (id %d)\n", session.User.Username, session.User.ID)
				return
			}

			// Token without a stored identity; ask the server.
			user, err := env.api.Me(ctx)
			if err != nil {
				log.Fatalf("Failed to resolve identity: %v", err)
			}
			fmt.Printf("%s (id %d)\n", user.Username, user.ID)
		},
	}
}

// NewTaskCommand creates the task management command
func NewTaskCommand() *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Task commands",
		Long:  "List, add, update and delete tasks",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Run: func(cmd *cobra.Command, args []string) {
			status, _ := cmd.Flags().GetString("status")

			ctx := cmd.Context()
			env, dashboard := mustDashboard(ctx)
			defer env.Close()

			if err := dashboard.SetFilter(entities.StatusFilter(status)); err != nil {
				log.Fatalf("Invalid status filter: %v", err)
			}
			if err := dashboard.Refresh(ctx); err != nil {
				log.Fatalf("%v", err)
			}

			printTasks(dashboard.VisibleTasks())
		},
	}
	listCmd.Flags().String("status", "all", "Filter by status (all, pending, in-progress, completed)")

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		Run: func(cmd *cobra.Command, args []string) {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			status, _ := cmd.Flags().GetString("status")

			ctx := cmd.Context()
			env, dashboard := mustDashboard(ctx)
			defer env.Close()

			task, err := dashboard.AddTask(ctx, ports.CreateTaskRequest{
				Title:       title,
				Description: description,
				Status:      entities.TaskStatus(status),
			})
			if err != nil {
				log.Fatalf("%v", err)
			}

			fmt.Printf("Created task %d: %s [%s]\n", task.ID, task.Title, task.Status)
		},
	}
	addCmd.Flags().String("title", "", "Task title (required)")
	addCmd.Flags().String("description", "", "Task description (required)")
	addCmd.Flags().String("status", "", "Initial status (defaults to pending)")

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id := mustTaskID(args[0])

			var patch entities.TaskPatch
			if cmd.Flags().Changed("title") {
				title, _ := cmd.Flags().GetString("title")
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				description, _ := cmd.Flags().GetString("description")
				patch.Description = &description
			}
			if cmd.Flags().Changed("status") {
				status, _ := cmd.Flags().GetString("status")
				taskStatus := entities.TaskStatus(status)
				patch.Status = &taskStatus
			}
			if patch.IsEmpty() {
				log.Fatal("Nothing to update; pass --title, --description or --status")
			}

			ctx := cmd.Context()
			env, dashboard := mustDashboard(ctx)
			defer env.Close()

			task, err := dashboard.UpdateTask(ctx, id, patch)
			if err != nil {
				log.Fatalf("%v", err)
			}

			fmt.Printf("Updated task %d: %s [%s]\n", task.ID, task.Title, task.Status)
		},
	}
	updateCmd.Flags().String("title", "", "New title")
	updateCmd.Flags().String("description", "", "New description")
	updateCmd.Flags().String("status", "", "New status")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id := mustTaskID(args[0])

			ctx := cmd.Context()
			env, dashboard := mustDashboard(ctx)
			defer env.Close()

			if err := dashboard.DeleteTask(ctx, id); err != nil {
				log.Fatalf("%v", err)
			}

			fmt.Printf("Deleted task %d\n", id)
		},
	}

	taskCmd.AddCommand(listCmd, addCmd, updateCmd, deleteCmd)
	return taskCmd
}

// NewDashboardCommand creates the dashboard command
func NewDashboardCommand() *cobra.Command {
	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the task dashboard",
		Run: func(cmd *cobra.Command, args []string) {
			status, _ := cmd.Flags().GetString("status")

			ctx := cmd.Context()
			env, dashboard := mustDashboard(ctx)
			defer env.Close()

			if err := dashboard.SetFilter(entities.StatusFilter(status)); err != nil {
				log.Fatalf("Invalid status filter: %v", err)
			}
			if err := dashboard.Refresh(ctx); err != nil {
				log.Fatalf("%v", err)
			}

			if user := dashboard.Session().User; user != nil {
				fmt.Printf("Logged in as %s\n", user.Username)
			}
			counts := dashboard.Counts()
			fmt.Printf("Total: %d  Pending: %d  Completed: %d\n\n", counts.Total, counts.Pending, counts.Completed)
			printTasks(dashboard.VisibleTasks())
		},
	}

	dashboardCmd.Flags().String("status", "all", "Filter by status (all, pending, in-progress, completed)")
	return dashboardCmd
}

func mustDashboard(ctx context.Context) (*clientEnv, *client.Dashboard) {
	env, err := newClientEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize client: %v", err)
	}

	if !env.session.Authenticated() {
		env.Close()
		log.Fatal("Not logged in; run `taskdeck login` first")
	}

	return env, client.NewDashboard(env.api, env.session, env.logger)
}

func mustTaskID(arg string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		log.Fatalf("Invalid task id %q", arg)
	}
	return id
}

func printTasks(tasks []entities.Task) {
	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return
	}

	for _, t := range tasks {
		fmt.Printf("%6d  %-12s  %s: %s\n", t.ID, t.Status, t.Title, t.Description)
	}
}
