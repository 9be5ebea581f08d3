package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/fbrowse/internal/config"
)

const AppName = "fbrowse"

// ASCII art logo lines for fbrowse
var LogoLines = []string{
	"▄▄▄▄ ▄▄▄                            ",
	"█▄▄  █▄▄█ █▀▀▄ ▄▀▀▄ █   █ ▄▀▀▀ ▄▀▀▄",
	"█    █▄▄█ █▀▀▄ █  █ █ █ █  ▀▀▄ █▀▀ ",
	"▀    ▀▀▀  ▀  ▀  ▀▀   ▀ ▀  ▀▀▀   ▀▀▀",
}

const CompactLogo = `fbrowse ›`

const Tagline = "File Browser"

// Banner gradient colors
var BannerColors = []lipgloss.Color{
	lipgloss.Color("#FF6B6B"),
	lipgloss.Color("#FFA86B"),
	lipgloss.Color("#95E1D3"),
	lipgloss.Color("#4ECDC4"),
}

var (
	PrimaryColor   = lipgloss.Color("#FF6B6B")
	SecondaryColor = lipgloss.Color("#4ECDC4")
	AccentColor    = lipgloss.Color("#95E1D3")

	BackgroundColor = lipgloss.Color("#1A1A2E")
	SurfaceColor    = lipgloss.Color("#16213E")
	TextColor       = lipgloss.Color("#EAEAEA")
	MutedColor      = lipgloss.Color("#94A3B8")

	WarnColor    = lipgloss.Color("#FFE66D")
	ErrorColor   = lipgloss.Color("#EF4444")
	SuccessColor = lipgloss.Color("#10B981")
)

// Styled components; rebuilt by ApplyTheme.
var (
	LogoStyle         lipgloss.Style
	TitleStyle        lipgloss.Style
	HeaderStyle       lipgloss.Style
	StatusBarStyle    lipgloss.Style
	SelectedItemStyle lipgloss.Style
	HelpStyle         lipgloss.Style
	ErrorMessageStyle lipgloss.Style
	SeparatorStyle    lipgloss.Style
	SidebarStyle      lipgloss.Style
	FocusedPaneStyle  lipgloss.Style

	StatusInfoStyle    lipgloss.Style
	StatusSuccessStyle lipgloss.Style
	StatusWarnStyle    lipgloss.Style
	StatusErrorStyle   lipgloss.Style

	EmptyStyle = lipgloss.NewStyle()
)

func init() {
	buildStyles()
}

func buildStyles() {
	LogoStyle = lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true)

	TitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(SurfaceColor).
		Bold(true).
		Padding(0, 2)

	HeaderStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor).
		Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Padding(0, 1)

	SelectedItemStyle = lipgloss.NewStyle().
		Foreground(BackgroundColor).
		Background(AccentColor).
		Bold(true)

	HelpStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	ErrorMessageStyle = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)

	SeparatorStyle = lipgloss.NewStyle().
		Foreground(MutedColor)

	SidebarStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(MutedColor).
		PaddingRight(1)

	FocusedPaneStyle = SidebarStyle.BorderForeground(AccentColor)

	StatusInfoStyle = lipgloss.NewStyle().
		Foreground(MutedColor)

	StatusSuccessStyle = lipgloss.NewStyle().
		Foreground(SuccessColor)

	StatusWarnStyle = lipgloss.NewStyle().
		Foreground(WarnColor)

	StatusErrorStyle = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)
}

// ApplyTheme replaces the palette with configured colors. Empty entries
// keep the built-in color.
func ApplyTheme(colors config.UIColors) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&PrimaryColor, colors.Primary)
	set(&SecondaryColor, colors.Secondary)
	set(&AccentColor, colors.Accent)
	set(&BackgroundColor, colors.Background)
	set(&SurfaceColor, colors.Surface)
	set(&TextColor, colors.Text)
	set(&MutedColor, colors.Muted)
	set(&ErrorColor, colors.Error)
	set(&SuccessColor, colors.Success)
	buildStyles()
}

// ContentWrapper returns a style for wrapping content with width and height constraints
func ContentWrapper(width, height int) lipgloss.Style {
	return EmptyStyle.Width(width).Height(height).MaxHeight(height)
}

func GetCompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}

	logo := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)

	return lipgloss.JoinVertical(
		lipgloss.Center,
		logo,
		"",
		HelpStyle.Render(message),
	)
}

// BannerText returns the uncolored banner lines for a version.
func BannerText(version string) []string {
	lines := make([]string, len(LogoLines), len(LogoLines)+2)
	copy(lines, LogoLines)
	lines = append(lines, "")

	tag := Tagline
	if version != "" && version != "dev" {
		if version[0] != 'v' && version[0] != 'V' {
			version = "v" + version
		}
		tag = fmt.Sprintf("%s %s", Tagline, version)
	}
	return append(lines, tag)
}

// RenderBanner renders the bordered startup banner.
func RenderBanner(version string) string {
	lines := BannerText(version)

	var coloredLines []string
	for i, line := range lines {
		if line == "" {
			coloredLines = append(coloredLines, line)
			continue
		}
		style := lipgloss.NewStyle().
			Foreground(BannerColors[i%len(BannerColors)]).
			Bold(i < len(LogoLines))
		coloredLines = append(coloredLines, style.Render(line))
	}

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(SecondaryColor).
		Padding(1, 3)

	return lipgloss.NewStyle().
		Width(60).
		Align(lipgloss.Center).
		Render(borderStyle.Render(lipgloss.JoinVertical(lipgloss.Center, coloredLines...)))
}

func ShowBanner(version string) {
	fmt.Println(RenderBanner(version))
}
