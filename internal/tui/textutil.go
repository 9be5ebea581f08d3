package tui

import "fmt"

// truncateEnd shortens s to at most limit runes, ending with an ellipsis
// when it had to cut.
func truncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}

// truncateMiddle keeps both ends of s, which matters for file names whose
// extension carries meaning.
func truncateMiddle(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	n := len(r)
	if n <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	keep := limit - 1
	left := keep / 2
	right := keep - left
	if left == 0 {
		return "…" + string(r[n-right:])
	}
	return string(r[:left]) + "…" + string(r[n-right:])
}

// humanSize formats a byte count the way the sidebar shows it.
func humanSize(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
