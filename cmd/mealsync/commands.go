package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bassista/mealsync/internal/calendar"
	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/mutation"
	"github.com/bassista/mealsync/internal/push"
	"github.com/bassista/mealsync/internal/session"
	"github.com/urfave/cli"
)

func commands() []cli.Command {
	return []cli.Command{
		{
			Name:      "login",
			Usage:     "open a household session",
			ArgsUsage: "NAME",
			Action:    action(login),
		},
		{
			Name:   "logout",
			Usage:  "close the session and drop the local cache",
			Action: action(logout),
		},
		{
			Name:  "groceries",
			Usage: "shared grocery list",
			Subcommands: []cli.Command{
				{Name: "list", Action: action(listGroceries)},
				{
					Name:      "add",
					ArgsUsage: "NAME",
					Flags: []cli.Flag{
						cli.StringFlag{Name: "aisle"},
						cli.StringFlag{Name: "qty"},
					},
					Action: action(addGrocery),
				},
				{Name: "toggle", ArgsUsage: "ID", Action: action(toggleGrocery)},
				{Name: "delete", ArgsUsage: "ID", Action: action(deleteGrocery)},
				{Name: "clear", Usage: "remove checked items", Action: action(clearGroceries)},
				{Name: "generate", Usage: "add ingredients of scheduled recipes", ArgsUsage: "FROM TO", Action: action(generateGroceries)},
			},
		},
		{
			Name:  "recipes",
			Usage: "household recipes",
			Subcommands: []cli.Command{
				{Name: "list", Action: action(listRecipes)},
				{Name: "show", ArgsUsage: "ID", Action: action(showRecipe)},
				{
					Name:      "add",
					ArgsUsage: "NAME",
					Flags: []cli.Flag{
						cli.IntFlag{Name: "servings"},
						cli.StringFlag{Name: "description"},
						cli.StringSliceFlag{Name: "ingredient", Usage: "name[:quantity[:unit]], repeatable"},
					},
					Action: action(addRecipe),
				},
				{Name: "delete", ArgsUsage: "ID", Action: action(deleteRecipe)},
			},
		},
		{
			Name:  "schedule",
			Usage: "meal plan",
			Subcommands: []cli.Command{
				{Name: "show", Usage: "show the loaded window, optionally jumping to DATE", ArgsUsage: "[DATE]", Action: action(showSchedule)},
				{
					Name:      "set",
					ArgsUsage: "DATE MEAL",
					Flags: []cli.Flag{
						cli.StringFlag{Name: "id", Usage: "entry to replace"},
						cli.StringFlag{Name: "recipe"},
						cli.StringFlag{Name: "note"},
					},
					Action: action(setSchedule),
				},
				{Name: "delete", ArgsUsage: "ID DATE", Action: action(deleteSchedule)},
			},
		},
		{
			Name:  "invite",
			Usage: "household invitations",
			Subcommands: []cli.Command{
				{Name: "list", Action: action(listInvitations)},
				{Name: "send", ArgsUsage: "EMAIL", Action: action(sendInvitation)},
				{Name: "respond", ArgsUsage: "ID accepted|declined", Action: action(respondInvitation)},
				{Name: "revoke", ArgsUsage: "ID", Action: action(revokeInvitation)},
			},
		},
		{
			Name:   "watch",
			Usage:  "stay connected and print every change pushed by the server",
			Action: action(watch),
		},
	}
}

func login(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 1, "NAME"); err != nil {
		return err
	}
	if err := e.client.Login(ctx, c.Args().First()); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "logged in")
	return nil
}

func logout(ctx context.Context, e *env, c *cli.Context) error {
	if err := e.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "logged out")
	return nil
}

func listGroceries(ctx context.Context, e *env, c *cli.Context) error {
	items, err := e.client.Groceries(ctx)
	if err != nil {
		return err
	}
	printGroceries(c.App.Writer, items)
	return nil
}

func addGrocery(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 1, "NAME"); err != nil {
		return err
	}
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	res, err := m.AddGrocery(ctx, model.GroceryItem{
		Name:     c.Args().First(),
		Aisle:    c.String("aisle"),
		Quantity: c.String("qty"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "added %s (%s)\n", res.Value.Name, res.Value.ID)
	return nil
}

func toggleGrocery(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 1, "ID"); err != nil {
		return err
	}
	// the toggle reads the current status from the cache
	if _, err := e.client.Groceries(ctx); err != nil {
		return err
	}
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	res, err := m.ToggleGrocery(ctx, c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s is now %s\n", res.Value.Name, res.Value.Status)
	return nil
}

func deleteGrocery(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 1, "ID"); err != nil {
		return err
	}
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	_, err = m.DeleteGrocery(ctx, c.Args().First())
	return err
}

func clearGroceries(ctx context.Context, e *env, c *cli.Context) error {
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	_, err = m.ClearChecked(ctx)
	return err
}

func generateGroceries(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 2, "FROM TO"); err != nil {
		return err
	}
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	res, err := m.GenerateGroceries(ctx, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "generated %d items\n", len(res.Value))
	printGroceries(c.App.Writer, res.Value)
	return nil
}

func listRecipes(ctx context.Context, e *env, c *cli.Context) error {
	recipes, err := e.client.Recipes(ctx)
	if err != nil {
		return err
	}
	printRecipes(c.App.Writer, recipes)
	return nil
}

func showRecipe(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 1, "ID"); err != nil {
		return err
	}
	r, err := e.client.Recipe(ctx, c.Args().First())
	if err != nil {
		return err
	}
	printRecipe(c.App.Writer, r)
	return nil
}

// parseIngredient reads name[:quantity[:unit]].
func parseIngredient(s string) model.Ingredient {
	parts := strings.SplitN(s, ":", 3)
	ing := model.Ingredient{Name: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		ing.Quantity = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		ing.Unit = strings.TrimSpace(parts[2])
	}
	return ing
}

func addRecipe(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 1, "NAME"); err != nil {
		return err
	}
	r := model.Recipe{
		Name:        c.Args().First(),
		Description: c.String("description"),
		Servings:    c.Int("servings"),
	}
	for _, s := range c.StringSlice("ingredient") {
		r.Ingredients = append(r.Ingredients, parseIngredient(s))
	}
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	res, err := m.CreateRecipe(ctx, r)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "created %s (%s)\n", res.Value.Name, res.Value.ID)
	return nil
}

func deleteRecipe(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 1, "ID"); err != nil {
		return err
	}
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	_, err = m.DeleteRecipe(ctx, c.Args().First())
	return err
}

func showSchedule(ctx context.Context, e *env, c *cli.Context) error {
	if c.NArg() > 1 {
		return needArgs(c, 1, "[DATE]")
	}
	if c.NArg() == 1 {
		target, err := calendar.ParseDate(c.Args().First())
		if err != nil {
			return err
		}
		if err := e.client.JumpTo(ctx, target); err != nil {
			return err
		}
		if d, ok := e.client.Navigator().Commit(); ok {
			fmt.Fprintf(c.App.Writer, "jumped to %s\n", calendar.FormatDate(d))
		}
	}
	days, err := e.client.Schedule(ctx)
	if err != nil {
		return err
	}
	start, end := e.client.Window().Bounds()
	fmt.Fprintf(c.App.Writer, "%s .. %s\n", calendar.FormatDate(start), calendar.FormatDate(end))
	printSchedule(c.App.Writer, days)
	return nil
}

func setSchedule(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 2, "DATE MEAL"); err != nil {
		return err
	}
	// moving an entry needs the batch that currently holds it
	if err := e.client.Prefetch(ctx); err != nil {
		return err
	}
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	res, err := m.SetScheduleEntry(ctx, model.ScheduleEntry{
		ID:       c.String("id"),
		Date:     c.Args().Get(0),
		Meal:     model.Meal(c.Args().Get(1)),
		RecipeID: c.String("recipe"),
		Note:     c.String("note"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "scheduled %s %s (%s)\n", res.Value.Date, res.Value.Meal, res.Value.ID)
	return nil
}

func deleteSchedule(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 2, "ID DATE"); err != nil {
		return err
	}
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	_, err = m.DeleteScheduleEntry(ctx, mutation.DeleteScheduleInput{ID: c.Args().Get(0), Date: c.Args().Get(1)})
	return err
}

func listInvitations(ctx context.Context, e *env, c *cli.Context) error {
	invs, err := e.client.Invitations(ctx)
	if err != nil {
		return err
	}
	printInvitations(c.App.Writer, invs)
	return nil
}

func sendInvitation(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 1, "EMAIL"); err != nil {
		return err
	}
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	res, err := m.SendInvitation(ctx, c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "invited %s (%s)\n", res.Value.Email, res.Value.ID)
	return nil
}

func respondInvitation(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 2, "ID accepted|declined"); err != nil {
		return err
	}
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	_, err = m.RespondInvitation(ctx, mutation.RespondInvitationInput{
		ID:     c.Args().Get(0),
		Status: model.InvitationStatus(c.Args().Get(1)),
	})
	return err
}

func revokeInvitation(ctx context.Context, e *env, c *cli.Context) error {
	if err := needArgs(c, 1, "ID"); err != nil {
		return err
	}
	m, err := e.client.Mutations()
	if err != nil {
		return err
	}
	_, err = m.RevokeInvitation(ctx, c.Args().First())
	return err
}

// watch keeps the push channel open until interrupted. Invalidated data is
// refetched in the background and the snapshot is saved periodically.
func watch(ctx context.Context, e *env, c *cli.Context) error {
	if e.sess.Token() == "" {
		return cli.NewExitError("not logged in", 1)
	}
	out := c.App.Writer
	e.client.OnPushStatus(func(s push.Status) {
		fmt.Fprintf(out, "%s push %s\n", time.Now().Format(time.TimeOnly), s)
	})
	e.client.OnMessage(func(msg push.Message) {
		if !msg.IsInvalidation() {
			return
		}
		if dates := msg.Dates(); len(dates) > 0 {
			fmt.Fprintf(out, "%s changed: %s %s\n", time.Now().Format(time.TimeOnly), msg.Resource, strings.Join(dates, ","))
			return
		}
		fmt.Fprintf(out, "%s changed: %s\n", time.Now().Format(time.TimeOnly), msg.Resource)
	})

	if err := e.kv.Watch(ctx, 200*time.Millisecond, e.sess.Sync); err != nil {
		return err
	}
	snapshots := session.StartSnapshotScheduler(ctx, e.sess, e.cfg.Client.SnapshotInterval)

	err := e.client.Run(ctx)
	<-snapshots
	if ctx.Err() != nil {
		return nil
	}
	return err
}
