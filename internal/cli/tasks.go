package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"HKQuant/internal/taskboard"
)

func newTasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Manage the research task board",
	}
	cmd.AddCommand(
		newTasksListCmd(a),
		newTasksAddCmd(a),
		newTasksMoveCmd(a),
		newTasksRemoveCmd(a),
	)
	return cmd
}

// withBoard opens the task board for the duration of fn.
func (a *app) withBoard(fn func(b *taskboard.Board) error) error {
	b, err := a.taskboard()
	if err != nil {
		return fmt.Errorf("open task board: %w", err)
	}
	defer b.Close()
	return fn(b)
}

func newTasksListCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, optionally filtered by status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var f taskboard.Filter
			if status != "" {
				st, err := taskboard.ParseStatus(status)
				if err != nil {
					return err
				}
				f.Status = st
			}
			return a.withBoard(func(b *taskboard.Board) error {
				tasks, err := b.List(cmd.Context(), f)
				if err != nil {
					return err
				}
				if tasks == nil {
					tasks = []taskboard.Task{}
				}
				return a.emit(tasks, nil, func() string { return renderTasks(tasks) })
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "todo, doing or done")
	return cmd
}

func newTasksAddCmd(a *app) *cobra.Command {
	var (
		description string
		priority    int
	)
	cmd := &cobra.Command{
		Use:   "add [TITLE]",
		Short: "Add a task; prompts for the fields when no title is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			if title == "" {
				ans, err := promptTask()
				if err != nil {
					return err
				}
				title, description, priority = ans.Title, ans.Description, ans.priority()
			}
			return a.withBoard(func(b *taskboard.Board) error {
				t, err := b.Add(cmd.Context(), title, description, priority)
				if err != nil {
					return err
				}
				return a.emit(t, nil, func() string {
					return upStyle.Render("✓ added ") + shortID(t.ID) + " " + t.Title
				})
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().IntVarP(&priority, "priority", "p", 3, "priority from 1 (highest) to 5")
	return cmd
}

func newTasksMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID [STATUS]",
		Short: "Move a task to todo, doing or done; prompts when no status is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withBoard(func(b *taskboard.Board) error {
				t, err := b.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				var st taskboard.Status
				if len(args) == 2 {
					st, err = taskboard.ParseStatus(args[1])
				} else {
					st, err = promptStatus(t.Status)
				}
				if err != nil {
					return err
				}
				moved, err := b.Move(ctx, t.ID, st)
				if err != nil {
					return err
				}
				return a.emit(moved, nil, func() string {
					return fmt.Sprintf("%s %s → %s", shortID(moved.ID), moved.Title, upStyle.Render(string(moved.Status)))
				})
			})
		},
	}
}

func newTasksRemoveCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withBoard(func(b *taskboard.Board) error {
				t, err := b.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				if !yes {
					ok, err := confirm(fmt.Sprintf("Delete %q?", t.Title))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(a.out, mutedStyle.Render("cancelled"))
						return nil
					}
				}
				if err := b.Delete(ctx, t.ID); err != nil {
					return err
				}
				return a.emit(t, nil, func() string { return downStyle.Render("✗ deleted ") + shortID(t.ID) + " " + t.Title })
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}
