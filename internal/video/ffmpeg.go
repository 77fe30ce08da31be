package video

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// CheckFFmpeg checks if FFmpeg is available - first checks bundled, then system
func CheckFFmpeg() (string, bool) {
	bundledPath := getBundledFFmpegPath()
	if bundledPath != "" {
		if _, err := os.Stat(bundledPath); err == nil {
			return bundledPath, true
		}
	}

	names := []string{"ffmpeg"}
	if runtime.GOOS == "windows" {
		names = []string{"ffmpeg.exe", "ffmpeg"}
	}

	for _, name := range names {
		path, err := exec.LookPath(name)
		if err == nil {
			return path, true
		}
	}

	// Check common installation directories
	commonPaths := []string{}
	switch runtime.GOOS {
	case "darwin":
		commonPaths = []string{
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/opt/local/bin/ffmpeg",
		}
	case "linux":
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
		}
	case "windows":
		commonPaths = []string{
			"C:\\ffmpeg\\bin\\ffmpeg.exe",
			"C:\\Program Files\\ffmpeg\\bin\\ffmpeg.exe",
		}
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	return "", false
}

// getBundledFFmpegPath returns the path to bundled FFmpeg based on OS and
// executable location
func getBundledFFmpegPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	switch runtime.GOOS {
	case "darwin":
		// App bundle layout: Contents/MacOS/<exe>, Contents/Resources/ffmpeg.
		// The last path covers dev mode with FFmpeg in the project root.
		possiblePaths := []string{
			filepath.Join(execDir, "..", "Resources", "ffmpeg"),
			filepath.Join(execDir, "ffmpeg"),
			filepath.Join(execDir, "..", "..", "..", "FFmpeg", "ffmpeg"),
		}
		for _, p := range possiblePaths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	case "windows":
		possiblePaths := []string{
			filepath.Join(execDir, "ffmpeg.exe"),
			filepath.Join(execDir, "FFmpeg", "ffmpeg.exe"),
		}
		for _, p := range possiblePaths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	case "linux":
		possiblePaths := []string{
			filepath.Join(execDir, "ffmpeg"),
			filepath.Join(execDir, "lib", "ffmpeg"),
			filepath.Join(execDir, "FFmpeg", "ffmpeg"),
		}
		for _, p := range possiblePaths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}

	return ""
}
