package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/timeq/internal/config"
	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/tui/theme"
)

// SetupValues holds the raw form answers.
type SetupValues struct {
	DataDir         string
	HoursPerWorkday string
	ProjectType     string
	BudgetHours     string
	DefaultRate     string
	Deadline        string
	Theme           string
}

// SetupValuesFrom seeds the form with cfg.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		DataDir:         cfg.General.DataDir,
		HoursPerWorkday: formatFloat(cfg.General.HoursPerWorkday),
		ProjectType:     cfg.Project.Type,
		BudgetHours:     formatFloat(cfg.Project.BudgetHours),
		DefaultRate:     formatFloat(cfg.Project.DefaultRate),
		Deadline:        cfg.Project.Deadline,
		Theme:           cfg.Appearance.Theme,
	}
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NewSetupForm builds the first-run wizard over vals. entryFiles and
// dataDir only feed the welcome note.
func NewSetupForm(entryFiles int, dataDir string, vals *SetupValues) *huh.Form {
	welcome := "No entry files found yet."
	if entryFiles > 0 {
		welcome = fmt.Sprintf("Found %d entry files in %s.", entryFiles, dataDir)
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to timeq").
				Description(welcome),
			huh.NewInput().
				Title("Data directory").
				Description("Where YAML/JSON entry files live. Blank keeps the default.").
				Value(&vals.DataDir),
			huh.NewInput().
				Title("Hours per workday").
				Value(&vals.HoursPerWorkday).
				Validate(positiveNumber),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Project type").
				Options(
					huh.NewOption("Hourly", string(model.ProjectHourly)),
					huh.NewOption("Fixed hours", string(model.ProjectFixedHours)),
					huh.NewOption("Retainer", string(model.ProjectRetainer)),
				).
				Value(&vals.ProjectType),
			huh.NewInput().
				Title("Budget hours").
				Description("Used by fixed-hours and retainer projects.").
				Value(&vals.BudgetHours).
				Validate(optionalNumber),
			huh.NewInput().
				Title("Default hourly rate").
				Value(&vals.DefaultRate).
				Validate(optionalNumber),
			huh.NewInput().
				Title("Deadline (YYYY-MM-DD)").
				Value(&vals.Deadline).
				Validate(optionalDate),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
		),
	)
}

func positiveNumber(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return errors.New("enter a positive number")
	}
	return nil
}

func optionalNumber(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return errors.New("enter a non-negative number or leave blank")
	}
	return nil
}

func optionalDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

// Apply copies the answers onto cfg and validates the result.
func (v SetupValues) Apply(cfg config.Config) (config.Config, error) {
	parse := func(s string) float64 {
		f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f
	}

	cfg.General.DataDir = strings.TrimSpace(v.DataDir)
	cfg.General.HoursPerWorkday = parse(v.HoursPerWorkday)
	cfg.Project.Type = v.ProjectType
	cfg.Project.BudgetHours = parse(v.BudgetHours)
	cfg.Project.DefaultRate = parse(v.DefaultRate)
	cfg.Project.Deadline = strings.TrimSpace(v.Deadline)
	if v.Theme != "" {
		cfg.Appearance.Theme = v.Theme
	}

	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
