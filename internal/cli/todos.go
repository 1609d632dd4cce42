package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/todosync/internal/model"
)

func newListCmd(o *rootOptions) *cobra.Command {
	var (
		project   string
		label     string
		completed string
		priority  string
		pages     int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List todos, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter model.TodoFilter
			if project != "" {
				filter.ProjectID = &project
			}
			if label != "" {
				filter.Label = &label
			}
			if completed != "" {
				b, err := strconv.ParseBool(completed)
				if err != nil {
					return fmt.Errorf("invalid --completed %q: %w", completed, err)
				}
				filter.Completed = &b
			}
			if priority != "" {
				p, err := model.ParsePriority(priority)
				if err != nil {
					return err
				}
				filter.Priority = &p
			}

			st := o.store()
			ctx := cmd.Context()
			if err := st.FetchTodos(ctx, filter, false); err != nil {
				return err
			}
			for i := 1; i < pages && st.Snapshot().HasMore; i++ {
				if err := st.FetchTodos(ctx, filter, true); err != nil {
					return err
				}
			}

			state := st.Snapshot()
			if err := printTodos(cmd.OutOrStdout(), state.Todos); err != nil {
				return err
			}
			if state.HasMore {
				fmt.Fprintf(cmd.OutOrStdout(), "\nMore todos available; rerun with --pages %d.\n", state.Page+2)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&project, "project", "", "Only todos in this project id")
	f.StringVar(&label, "label", "", "Only todos carrying this label")
	f.StringVar(&completed, "completed", "", "Only completed (true) or open (false) todos")
	f.StringVar(&priority, "priority", "", "Only todos with this priority")
	f.IntVar(&pages, "pages", 1, "Number of pages to load")
	return cmd
}

func newAddCmd(o *rootOptions) *cobra.Command {
	var (
		description string
		priority    string
		project     string
		due         string
		labels      []string
		subtasks    []string
	)

	cmd := &cobra.Command{
		Use:   "add <title>...",
		Short: "Create a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePriority(priority)
			if err != nil {
				return err
			}
			input := model.TodoInput{
				Title:       strings.Join(args, " "),
				Description: description,
				Priority:    p,
				Labels:      labels,
			}
			if project != "" {
				input.ProjectID = &project
			}
			if due != "" {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				input.DueDate = &d
				input.DueDateTimezone = time.Local.String()
			}
			for _, title := range subtasks {
				input.Subtasks = append(input.Subtasks, model.SubTask{Title: title})
			}

			todo, err := o.store().CreateTodo(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s\n", todo.ID, todo.Title)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&description, "description", "d", "", "Longer description")
	f.StringVarP(&priority, "priority", "p", "", "none, low, medium or high")
	f.StringVar(&project, "project", "", "Project id (defaults to the inbox)")
	f.StringVar(&due, "due", "", "Due date, YYYY-MM-DD or RFC 3339")
	f.StringSliceVarP(&labels, "label", "l", nil, "Label to attach (repeatable)")
	f.StringSliceVar(&subtasks, "subtask", nil, "Subtask title (repeatable, kept in order)")
	return cmd
}

func newCompleteCmd(o *rootOptions, use string, completed bool) *cobra.Command {
	short := "Mark a todo as completed"
	if !completed {
		short = "Mark a todo as not completed"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.mutate(cmd, args[0], model.TodoPatch{Completed: &completed})
		},
	}
}

func newEditCmd(o *rootOptions) *cobra.Command {
	var (
		title       string
		description string
		priority    string
		project     string
		noProject   bool
		due         string
		noDue       bool
		labels      []string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a todo",
		Long: `Change fields of a todo. Only the flags you pass are sent; use
--no-project and --no-due to clear those fields.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var patch model.TodoPatch
			if f.Changed("title") {
				patch.Title = &title
			}
			if f.Changed("description") {
				patch.Description = &description
			}
			if f.Changed("priority") {
				p, err := model.ParsePriority(priority)
				if err != nil {
					return err
				}
				patch.Priority = &p
			}
			switch {
			case noProject:
				patch.ClearProjectID = true
			case f.Changed("project"):
				patch.ProjectID = &project
			}
			switch {
			case noDue:
				patch.ClearDueDate = true
			case f.Changed("due"):
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				tz := time.Local.String()
				patch.DueDate = &d
				patch.DueDateTimezone = &tz
			}
			if f.Changed("label") {
				patch.Labels = &labels
			}
			return o.mutate(cmd, args[0], patch)
		},
	}

	f := cmd.Flags()
	f.StringVar(&title, "title", "", "New title")
	f.StringVarP(&description, "description", "d", "", "New description")
	f.StringVarP(&priority, "priority", "p", "", "New priority")
	f.StringVar(&project, "project", "", "Move to this project id")
	f.BoolVar(&noProject, "no-project", false, "Remove the todo from its project")
	f.StringVar(&due, "due", "", "New due date, YYYY-MM-DD or RFC 3339")
	f.BoolVar(&noDue, "no-due", false, "Clear the due date")
	f.StringSliceVarP(&labels, "label", "l", nil, "Replace labels (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("project", "no-project")
	cmd.MarkFlagsMutuallyExclusive("due", "no-due")
	return cmd
}

func newRemoveCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := o.store()
			id := args[0]
			if _, err := st.FetchTodoByID(cmd.Context(), id); err != nil {
				return err
			}
			if err := st.RemoveTodo(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		},
	}
}

func newShowCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a todo in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			todo, err := o.store().FetchTodoByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printTodo(cmd.OutOrStdout(), *todo)
		},
	}
}

// mutate loads a todo into a fresh store and applies patch through the
// optimistic path.
func (o *rootOptions) mutate(cmd *cobra.Command, id string, patch model.TodoPatch) error {
	st := o.store()
	if _, err := st.FetchTodoByID(cmd.Context(), id); err != nil {
		return err
	}
	todo, err := st.MutateTodo(cmd.Context(), id, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s %s\n", todo.ID, checkbox(todo.Completed), todo.Title)
	return nil
}
