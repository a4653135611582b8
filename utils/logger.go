// utils/logger.go
package utils

import (
	"fmt"

	"github.com/fatih/color"
)

// LogInfo prints an informational line in blue.
func LogInfo(format string, v ...interface{}) {
	color.Blue("[INFO] %s", fmt.Sprintf(format, v...))
}

// LogSuccess prints a completed-action line in green.
func LogSuccess(format string, v ...interface{}) {
	color.Green("[OK] ✅ %s", fmt.Sprintf(format, v...))
}

// LogWarn prints a warning in yellow.
func LogWarn(format string, v ...interface{}) {
	color.Yellow("[WARN] ⚠️  %s", fmt.Sprintf(format, v...))
}

// LogError prints an error in red.
func LogError(format string, v ...interface{}) {
	color.Red("[ERROR] ❌ %s", fmt.Sprintf(format, v...))
}

// LogDebug prints a debug line in cyan.
func LogDebug(format string, v ...interface{}) {
	color.Cyan("[DEBUG] %s", fmt.Sprintf(format, v...))
}
