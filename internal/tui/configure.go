package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/config"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/language"
)

// ConfigureResult is the outcome of the wizard.
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// Run walks the user through the broker, backend, and detection settings.
// The passed config provides the starting values and is not modified.
func Run(cfg *config.Config) (*ConfigureResult, error) {
	edited := *cfg

	clearScreen()
	fmt.Println(StyleHeader.Render("rhasspy-asr-kaldi-hermes configuration"))
	fmt.Println(StyleMuted.Render("Hermes MQTT speech recognition service"))
	fmt.Println()

	if err := editBroker(&edited); err != nil {
		return nil, err
	}
	if err := editRecognition(&edited); err != nil {
		return nil, err
	}
	if err := editDetection(&edited); err != nil {
		return nil, err
	}

	save := true
	confirm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Discard").
				Value(&save),
		),
	).WithTheme(getTheme())
	if err := confirm.Run(); err != nil {
		return nil, err
	}

	if !save {
		return &ConfigureResult{Cancelled: true}, nil
	}
	return &ConfigureResult{Config: &edited}, nil
}

func editBroker(cfg *config.Config) error {
	siteIDs := strings.Join(cfg.ASR.SiteIDs, ", ")

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("MQTT Broker").
				Description("Broker URL, e.g. tcp://localhost:1883").
				Validate(func(s string) error {
					if !strings.Contains(s, "://") {
						return fmt.Errorf("expected a URL like tcp://localhost:1883")
					}
					return nil
				}).
				Value(&cfg.MQTT.Broker),
			huh.NewInput().
				Title("Username").
				Description("Leave empty for anonymous access").
				Value(&cfg.MQTT.Username),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.MQTT.Password),
			huh.NewInput().
				Title("Site IDs").
				Description("Comma-separated Hermes sites to serve, empty for all").
				Value(&siteIDs),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.ASR.SiteIDs = parseSiteIDs(siteIDs)
	return nil
}

func editRecognition(cfg *config.Config) error {
	providerForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription Backend").
				Description("Choose which engine turns audio into text").
				Options(
					huh.NewOption("Local decoder command (Kaldi)", "exec"),
					huh.NewOption("OpenAI Whisper", "openai"),
				).
				Value(&cfg.ASR.Provider),
		),
	).WithTheme(getTheme())

	if err := providerForm.Run(); err != nil {
		return err
	}

	var group *huh.Group
	switch cfg.ASR.Provider {
	case "exec":
		group = huh.NewGroup(
			huh.NewInput().
				Title("Decoder Command").
				Description("Binary invoked per utterance, e.g. kaldi-decode").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("command is required")
					}
					return nil
				}).
				Value(&cfg.ASR.Command),
			huh.NewInput().
				Title("Model").
				Description("Model name or path passed to the decoder, empty for its default").
				Value(&cfg.ASR.Model),
		)
	case "openai":
		group = huh.NewGroup(
			huh.NewInput().
				Title("API Key").
				Description("Leave empty to use the OPENAI_API_KEY environment variable").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.ASR.APIKey),
			huh.NewInput().
				Title("Model").
				Description("OpenAI model name, empty for whisper-1").
				Value(&cfg.ASR.Model),
			huh.NewInput().
				Title("Language").
				Description("ISO-639-1 code (e.g. 'en', 'de') or empty for auto-detect").
				Validate(func(s string) error {
					if !language.IsValidCode(s) {
						return fmt.Errorf("unknown language code %q", s)
					}
					return nil
				}).
				Value(&cfg.ASR.Language),
		)
	default:
		return fmt.Errorf("unknown provider: %s", cfg.ASR.Provider)
	}

	return huh.NewForm(group).WithTheme(getTheme()).Run()
}

func editDetection(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Detect end of command automatically?").
				Description("Finalize a session after trailing silence, without waiting for an explicit stop").
				Value(&cfg.Silence.Enabled),
			huh.NewConfirm().
				Title("Serve Prometheus metrics?").
				Value(&cfg.Metrics.Enabled),
		),
	).WithTheme(getTheme())

	return form.Run()
}

func parseSiteIDs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
