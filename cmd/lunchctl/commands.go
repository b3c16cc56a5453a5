package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/briefing"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/menu"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/weather"
)

func newNextSchoolDayCmd(opts *rootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "next-school-day [date]",
		Short: "Advance a date by a number of school days",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadComponents(opts)
			if err != nil {
				return err
			}
			defer c.close()

			from := c.calendar.Today(time.Now())
			if len(args) == 1 {
				from = args[0]
			}
			date, err := c.calendar.NextSchoolDay(from, count)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, map[string]any{"from": from, "count": count, "date": date})
			}
			_, err = fmt.Fprintln(out, date)
			return err
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of school days to advance")
	return cmd
}

func newSchoolDayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "school-day <date>",
		Short: "Report whether a date is a school day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadComponents(opts)
			if err != nil {
				return err
			}
			defer c.close()

			ok, err := c.calendar.IsSchoolDay(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, map[string]any{"date": args[0], "schoolDay": ok})
			}
			verdict := "a school day"
			if !ok {
				verdict = "not a school day"
			}
			_, err = fmt.Fprintf(out, "%s is %s\n", args[0], verdict)
			return err
		},
	}
}

func newMenuCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "menu [date]",
		Short: "Fetch the lunch menu for a date (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadComponents(opts)
			if err != nil {
				return err
			}
			defer c.close()

			date := c.calendar.Today(time.Now())
			if len(args) == 1 {
				date = args[0]
			}
			rec, err := c.fetcher.FetchMenu(cmd.Context(), date)
			if err != nil {
				return err
			}
			mains := menu.RankMainItems(rec.Items, c.cfg.School.MaxMainItems)
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, map[string]any{"record": rec, "mainItems": mains})
			}
			return printMenu(out, rec, mains)
		},
	}
}

func newWeatherCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "weather",
		Short: "Fetch the current-hour forecast for the school",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadComponents(opts)
			if err != nil {
				return err
			}
			defer c.close()

			rec := c.fetcher.FetchTodayWeather(cmd.Context())
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, rec)
			}
			_, err = fmt.Fprintln(out, describeWeather(rec))
			return err
		},
	}
}

func newLunchCmd(opts *rootOptions) *cobra.Command {
	var req briefing.Request
	cmd := &cobra.Command{
		Use:   "lunch",
		Short: "Speak the lunch briefing for a school day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadComponents(opts)
			if err != nil {
				return err
			}
			defer c.close()

			resp, err := c.briefing.Lunch(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, resp)
			}
			_, err = fmt.Fprintln(out, resp.Speech)
			return err
		},
	}
	cmd.Flags().StringVar(&req.Day, "day", "today", "today or tomorrow")
	cmd.Flags().StringVar(&req.Date, "date", "", "explicit YYYY-MM-DD date (overrides --day)")
	return cmd
}

func printMenu(w io.Writer, rec menu.Record, mains []menu.Item) error {
	fmt.Fprintf(w, "Menu for %s (fetched %s)\n", rec.Date, humanize.Time(rec.FetchedAt))
	if len(rec.Items) == 0 {
		_, err := fmt.Fprintln(w, "  "+rec.Message)
		return err
	}
	isMain := make(map[string]bool, len(mains))
	for _, item := range mains {
		isMain[item.Name] = true
	}
	for _, item := range rec.Items {
		marker := " "
		if isMain[item.Name] {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s", marker, item.Name)
		if item.Category != "" {
			line += " [" + item.Category + "]"
		}
		if item.Nutrients != nil {
			line += fmt.Sprintf(" %s kcal, %sg protein",
				humanize.FtoaWithDigits(item.Nutrients.Calories, 0), humanize.FtoaWithDigits(item.Nutrients.ProteinGrams, 1))
		}
		if len(item.Allergens) > 0 {
			line += " (contains " + strings.Join(item.Allergens, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
	_, err := fmt.Fprintf(w, "%d main %s\n", len(mains), pluralize(len(mains), "item", "items"))
	return err
}

func describeWeather(rec weather.Record) string {
	if rec.IsFallback || rec.Temperature == nil {
		return rec.Conditions
	}
	parts := []string{fmt.Sprintf("%s°%s", humanize.FtoaWithDigits(*rec.Temperature, 1), rec.TemperatureUnit)}
	if rec.Conditions != "" {
		parts = append(parts, rec.Conditions)
	}
	if rec.WindSpeed != "" {
		parts = append(parts, strings.TrimSpace("wind "+rec.WindSpeed+" "+rec.WindDirection))
	}
	if rec.PrecipitationChance != nil {
		parts = append(parts, fmt.Sprintf("%d%% chance of precipitation", *rec.PrecipitationChance))
	}
	return fmt.Sprintf("%s (as of %s)", strings.Join(parts, ", "), humanize.Time(rec.FetchedAt))
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
