package theme

import "github.com/charmbracelet/lipgloss"

// Palette colors.
var (
	ColorLike     = lipgloss.Color("#16a34a")
	ColorComment  = lipgloss.Color("#2563eb")
	ColorGift     = lipgloss.Color("#d97706")
	ColorFollow   = lipgloss.Color("#0891b2")
	ColorDevice   = lipgloss.Color("#7c3aed")
	ColorDanger   = lipgloss.Color("#dc2626")
	ColorDimDark  = lipgloss.Color("#6b7280")
	ColorDimLight = lipgloss.Color("#9ca3af")
	ColorFgDark   = lipgloss.Color("#f9fafb")
	ColorFgLight  = lipgloss.Color("#111827")
)

// Styles are the reusable styles of one theme.
type Styles struct {
	Header lipgloss.Style
	Dimmed lipgloss.Style
	Error  lipgloss.Style
	Border lipgloss.Style
	kinds  map[string]lipgloss.Style
}

// StylesFor builds the styles for n.
func StylesFor(n Name) Styles {
	fg, dim := ColorFgLight, ColorDimLight
	if n == Dark {
		fg, dim = ColorFgDark, ColorDimDark
	}
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(fg),
		Dimmed: lipgloss.NewStyle().Foreground(dim),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(ColorDanger),
		Border: lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(dim),
		kinds: map[string]lipgloss.Style{
			"like":              lipgloss.NewStyle().Foreground(ColorLike),
			"chat":              lipgloss.NewStyle().Foreground(ColorComment),
			"comment":           lipgloss.NewStyle().Foreground(ColorComment),
			"gift":              lipgloss.NewStyle().Bold(true).Foreground(ColorGift),
			"follow":            lipgloss.NewStyle().Foreground(ColorFollow),
			"device-activation": lipgloss.NewStyle().Foreground(ColorDevice),
			"device-status":     lipgloss.NewStyle().Foreground(ColorDevice),
			"connection-status": lipgloss.NewStyle().Foreground(ColorDanger),
		},
	}
}

// Badge renders label in the style for key (an event kind or stream
// subtype), or in the foreground color when key has no style.
func (s Styles) Badge(key, label string) string {
	if st, ok := s.kinds[key]; ok {
		return st.Render(label)
	}
	return s.Header.UnsetBold().Render(label)
}
