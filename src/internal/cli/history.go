package cli

import (
	"fmt"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
)

// RenderHistory prints one page of a developer's audit feed, newest first.
func (u *UI) RenderHistory(page model.Page[model.HistoryRow]) error {
	if len(page.Items) == 0 {
		fmt.Fprintln(u.Out, "No history entries.")
		return nil
	}

	table := u.Table([]string{"When", "Action", "Change", "Project", "Issue"})
	for _, row := range page.Items {
		project := "-"
		if row.Project != nil {
			project = row.Project.Key
		}
		if err := table.Append([]string{
			row.Entry.At.UTC().Format(time.DateTime),
			string(row.Entry.Action),
			describeChange(row.Entry),
			project,
			row.Title,
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(u.Out, "\npage %d of %d (%d entries)\n", page.Page, page.Pages, page.Total)
	return nil
}

func describeChange(e model.HistoryEntry) string {
	if e.Action == model.ActionUnassign {
		return "unassigned"
	}
	return fmt.Sprintf("%s -> %s", StatusColor(e.From), StatusColor(e.To))
}

func (u *UI) RenderUsers(page model.Page[model.User]) error {
	if len(page.Items) == 0 {
		fmt.Fprintln(u.Out, "No users found.")
		return nil
	}
	table := u.Table([]string{"Name", "Email", "Role", "Active", "Created"})
	for _, usr := range page.Items {
		active := green("yes")
		if !usr.IsActive {
			active = red("no")
		}
		if err := table.Append([]string{
			cyan(usr.Name),
			usr.Email,
			string(usr.Role),
			active,
			usr.CreatedAt.Format(time.DateOnly),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
