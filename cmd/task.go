package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/cairnkernel/internal/bus"
	"github.com/nextlevelbuilder/cairnkernel/internal/store"
	"github.com/nextlevelbuilder/cairnkernel/internal/workermanager"
)

var (
	taskOwner    string
	taskRepos    string
	taskBranch   string
	taskKind     string
	taskModel    string
	taskProvider string
)

// taskCmd is the operator-facing front door onto the Worker Manager/Store,
// in the style of the teacher's doctor.go: plain fmt.Printf reports, no
// separate output-formatting layer.
func taskCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "task",
		Short: "Create, list, inspect, or remove tasks",
	}

	create := &cobra.Command{
		Use:   "create <description>",
		Short: "Create and spawn a new task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskCreate(args[0])
		},
	}
	create.Flags().StringVar(&taskKind, "kind", "Engineer", "agent kind: Planner, Manager, or Engineer")
	create.Flags().StringVar(&taskOwner, "owner", "", "repo owner/org (required)")
	create.Flags().StringVar(&taskRepos, "repos", "", "comma-separated repo list (required)")
	create.Flags().StringVar(&taskBranch, "branch", "", "branch name")
	create.Flags().StringVar(&taskModel, "model", "", "model name override")
	create.Flags().StringVar(&taskProvider, "provider", "", "model provider override")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all active tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskList()
		},
	}

	show := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show one task's full state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskShow(args[0])
		},
	}

	rm := &cobra.Command{
		Use:   "rm <run_id>",
		Short: "Terminate and remove a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskRemove(args[0])
		},
	}

	root.AddCommand(create, list, show, rm)
	return root
}

func runTaskCreate(description string) error {
	if taskOwner == "" || taskRepos == "" {
		return fmt.Errorf("--owner and --repos are required")
	}
	kind := store.AgentKind(taskKind)
	switch kind {
	case store.AgentKindPlanner, store.AgentKindManager, store.AgentKindEngineer:
	default:
		return fmt.Errorf("--kind must be one of Planner, Manager, Engineer, got %q", taskKind)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	workerExe := cfg.Worker.Exe
	if workerExe == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve worker executable: %w", err)
		}
		workerExe = self
	}
	workerArgs := append(append([]string{}, cfg.Worker.Args...), "worker")
	manager := workermanager.New(st, bus.New(), workerExe, workerArgs, cfg.Worker.LogDir, nil)

	task := &store.Task{
		RunID:         strings.ToLower(string(kind)) + "_" + uuid.New().String(),
		AgentKind:     kind,
		Description:   description,
		Owner:         taskOwner,
		Repos:         strings.Split(taskRepos, ","),
		Branch:        taskBranch,
		ModelProvider: taskProvider,
		ModelName:     taskModel,
	}

	created, err := manager.CreateTask(context.Background(), task)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	fmt.Printf("created task %s (status=%s)\n", created.RunID, created.Status)
	return nil
}

func runTaskList() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	tasks, err := st.GetAllActiveTasks()
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("no active tasks")
		return nil
	}
	for _, t := range tasks {
		fmt.Printf("%-40s %-10s %-10s %s\n", t.RunID, t.AgentKind, t.Status, t.Owner)
	}
	return nil
}

func runTaskShow(runID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	task, err := st.GetActiveTask(runID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	out, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runTaskRemove(runID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	manager := workermanager.New(st, bus.New(), "", nil, cfg.Worker.LogDir, nil)
	if err := manager.RemoveTask(context.Background(), runID); err != nil {
		return fmt.Errorf("remove task: %w", err)
	}
	fmt.Printf("removed task %s\n", runID)
	return nil
}
