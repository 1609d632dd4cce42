package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nhle/todosync/internal/model"
)

const dateLayout = "2006-01-02"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

func printTodos(w io.Writer, todos []model.Todo) error {
	if len(todos) == 0 {
		_, err := fmt.Fprintln(w, "No todos.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\t\tPRIORITY\tDUE\tTITLE\tLABELS")
	for _, t := range todos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, checkbox(t.Completed), t.Priority, formatDue(t.DueDate),
			t.Title, strings.Join(t.Labels, ","))
	}
	return tw.Flush()
}

func printTodo(w io.Writer, t model.Todo) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", t.ID)
	fmt.Fprintf(tw, "Title:\t%s %s\n", checkbox(t.Completed), t.Title)
	if t.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", t.Description)
	}
	fmt.Fprintf(tw, "Priority:\t%s\n", t.Priority)
	fmt.Fprintf(tw, "Project:\t%s\n", orDash(t.ProjectKey()))
	fmt.Fprintf(tw, "Due:\t%s\n", formatDue(t.DueDate))
	fmt.Fprintf(tw, "Labels:\t%s\n", orDash(strings.Join(t.Labels, ", ")))
	fmt.Fprintf(tw, "Created:\t%s\n", t.CreatedAt.Local().Format(time.RFC3339))
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(t.Subtasks) > 0 {
		fmt.Fprintln(w, "Subtasks:")
		for _, st := range t.Subtasks {
			fmt.Fprintf(w, "  %s %s\n", checkbox(st.Completed), st.Title)
		}
	}
	return nil
}

func printProjects(w io.Writer, projects []model.Project) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tTODOS")
	for _, p := range projects {
		name := p.Name
		if p.IsDefault {
			name += " (default)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", p.ID, name, p.TodoCount)
	}
	return tw.Flush()
}

func printLabels(w io.Writer, labels []model.Label) error {
	if len(labels) == 0 {
		_, err := fmt.Fprintln(w, "No labels.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "LABEL\tACTIVE")
	for _, l := range labels {
		fmt.Fprintf(tw, "%s\t%d\n", l.Name, l.Count)
	}
	return tw.Flush()
}

func printCounts(w io.Writer, c model.Counts) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "inbox\t%d\n", c.Inbox)
	fmt.Fprintf(tw, "today\t%d\n", c.Today)
	fmt.Fprintf(tw, "upcoming\t%d\n", c.Upcoming)
	fmt.Fprintf(tw, "completed\t%d\n", c.Completed)
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// parseDue accepts a calendar date in local time or a full RFC 3339
// timestamp.
func parseDue(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	return t, nil
}
