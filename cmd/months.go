package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/timeq/internal/calendar"
	"github.com/theirongolddev/timeq/internal/cli"
)

var flagMonthsYear int

var monthsCmd = &cobra.Command{
	Use:   "months",
	Short: "Working days and target hours per month",
	RunE:  runMonths,
}

func init() {
	monthsCmd.Flags().IntVar(&flagMonthsYear, "year", 0, "Calendar year (default: current)")
	rootCmd.AddCommand(monthsCmd)
}

func runMonths(_ *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	year := flagMonthsYear
	if year == 0 {
		now, err := reportTime()
		if err != nil {
			return err
		}
		year = now.Year()
	}

	hpd := cfg.General.HoursPerWorkday
	rows := make([][]string, 0, 14)
	var days int
	var target float64
	for m := time.January; m <= time.December; m++ {
		wd := calendar.WorkingDaysInMonth(year, m)
		th := calendar.TargetHours(year, m, hpd)
		days += wd
		target += th
		rows = append(rows, []string{
			calendar.Key{Year: year, Month: m}.Label(),
			fmt.Sprintf("%d", calendar.DaysInMonth(year, m)),
			fmt.Sprintf("%d", wd),
			cli.FormatHours(th),
		})
	}
	rows = append(rows, []string{"---"}, []string{"Total", "", fmt.Sprintf("%d", days), cli.FormatHours(target)})

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("WORKING CALENDAR  %d  (%s per day)", year, cli.FormatHours(hpd))))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Month", "Days", "Workdays", "Target"},
		Rows:    rows,
	}))
	return nil
}
