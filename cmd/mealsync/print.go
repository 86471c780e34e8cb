package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bassista/mealsync/internal/model"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printGroceries(w io.Writer, items []model.GroceryItem) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tAISLE\tSTATUS")
	for _, g := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", g.ID, g.Name, g.Quantity, g.Aisle, g.Status)
	}
	_ = tw.Flush()
}

func printRecipes(w io.Writer, recipes []model.Recipe) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tSERVINGS\tINGREDIENTS")
	for _, r := range recipes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", r.ID, r.Name, r.Servings, len(r.Ingredients))
	}
	_ = tw.Flush()
}

func printRecipe(w io.Writer, r model.Recipe) {
	fmt.Fprintf(w, "%s (%s), serves %d\n", r.Name, r.ID, r.Servings)
	if r.Description != "" {
		fmt.Fprintln(w, r.Description)
	}
	tw := table(w)
	for _, ing := range r.Ingredients {
		fmt.Fprintf(tw, "  %s\t%s %s\t%s\n", ing.Name, ing.Quantity, ing.Unit, ing.ID)
	}
	_ = tw.Flush()
}

func printSchedule(w io.Writer, days []model.ScheduleDay) {
	tw := table(w)
	for _, d := range days {
		for _, e := range d.Entries {
			what := e.Note
			if e.RecipeID != "" {
				what = "recipe " + e.RecipeID
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Date, e.Meal, what, e.ID)
		}
	}
	_ = tw.Flush()
}

func printInvitations(w io.Writer, invs []model.Invitation) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tEMAIL\tSTATUS")
	for _, i := range invs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", i.ID, i.Email, i.Status)
	}
	_ = tw.Flush()
}
