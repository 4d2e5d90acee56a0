package tasks

import (
	"path/filepath"
	"strings"
)

// isWindowsAbs reports whether p is a drive-rooted (C:\x, C:/x) or UNC (\\host\share) path.
func isWindowsAbs(p string) bool {
	if strings.HasPrefix(p, `\\`) || strings.HasPrefix(p, "//") {
		return true
	}
	if len(p) >= 3 && isDriveLetter(p[0]) && p[1] == ':' && (p[2] == '\\' || p[2] == '/') {
		return true
	}
	return false
}

// isRemoteAbs reports whether p is absolute on a Windows or POSIX remote host,
// independent of the local OS.
func isRemoteAbs(p string) bool {
	return isWindowsAbs(p) || strings.HasPrefix(p, "/")
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// resolvePath makes p absolute against base. Windows absolute paths are left
// untouched on every host OS because the scripts run on Windows.
func resolvePath(base, p string) string {
	if isWindowsAbs(p) || filepath.IsAbs(p) {
		return p
	}
	if isWindowsAbs(base) {
		return joinRemotePath(base, p)
	}
	return filepath.Join(base, p)
}

// joinRemotePath joins elements using the separator style of base.
func joinRemotePath(base string, elem ...string) string {
	sep := "/"
	if strings.Contains(base, `\`) {
		sep = `\`
	}
	parts := []string{strings.TrimRight(base, `/\`)}
	for _, e := range elem {
		e = strings.TrimPrefix(e, "./")
		e = strings.TrimPrefix(e, `.\`)
		if e == "" || e == "." {
			continue
		}
		if sep == `\` {
			e = strings.ReplaceAll(e, "/", `\`)
		}
		parts = append(parts, strings.Trim(e, `/\`))
	}
	return strings.Join(parts, sep)
}
