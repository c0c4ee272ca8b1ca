package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // action succeeded
	SymbolFail     = "✗" // action failed
	SymbolWarning  = "⚠"
	SymbolPending  = "○" // unknown or not yet checked
	SymbolComplete = "●" // online / up
	SymbolSkipped  = "⊘" // disabled
	SymbolLive     = "◉"
)

// StatusSymbol maps a backend status string onto a colored symbol.
func StatusSymbol(status string) string {
	switch status {
	case "online", "up", "live":
		return SuccessStyle().Render(SymbolComplete)
	case "offline", "down":
		return ErrorStyle().Render(SymbolFail)
	case "degraded", "warning", "reconnecting", "connecting":
		return WarningStyle().Render(SymbolComplete)
	case "disabled":
		return MutedStyle().Render(SymbolSkipped)
	default:
		return MutedStyle().Render(SymbolPending)
	}
}
