// Package format renders balances for the captive-portal UI: data in
// binary units, time as minutes/hours/days.
package format

import "fmt"

// DataSize formats a byte count the way the portal displays it.
func DataSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
	case bytes < 1024*1024*1024:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	default:
		return fmt.Sprintf("%.2f GB", float64(bytes)/(1024*1024*1024))
	}
}

// DataSizeMB formats a balance stored in megabytes.
func DataSizeMB(megabytes int64) string {
	return DataSize(megabytes * 1024 * 1024)
}

// TimeDuration formats a minute count as min / XhYm / XdYh.
func TimeDuration(minutes int64) string {
	switch {
	case minutes < 60:
		return fmt.Sprintf("%d min", minutes)
	case minutes < 1440:
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	default:
		return fmt.Sprintf("%dd %dh", minutes/1440, (minutes%1440)/60)
	}
}
