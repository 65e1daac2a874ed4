package main

import "fmt"

// formatDuration renders seconds as m:ss, or h:mm:ss past the hour.
func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func formatSizeMB(sizeMB float64) string {
	if sizeMB >= 1024 {
		return fmt.Sprintf("%.1f GB", sizeMB/1024)
	}
	return fmt.Sprintf("%.1f MB", sizeMB)
}
