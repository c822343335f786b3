package model

import "fmt"

// FileCategory represents the taxonomy bucket a file is classified into.
type FileCategory int

const (
	CatSource FileCategory = iota
	CatLinuxShell
	CatWindowsPowerShell
	CatWindowsExecutable
	CatWindowsBatch
	CatWindowsOffice
	CatMedia
	CatFont
	CatBytecode
	CatConfig
	CatOtherBinary
	CatUnknown
)

// NumCategories is the number of FileCategory variants.
const NumCategories = int(CatUnknown) + 1

// AllCategories returns every category in declaration order.
func AllCategories() []FileCategory {
	cats := make([]FileCategory, NumCategories)
	for i := range cats {
		cats[i] = FileCategory(i)
	}
	return cats
}

// CategoryName returns the display name for a category.
func CategoryName(cat FileCategory) string {
	switch cat {
	case CatSource:
		return "Source code"
	case CatLinuxShell:
		return "Linux shell"
	case CatWindowsPowerShell:
		return "PowerShell"
	case CatWindowsExecutable:
		return "Windows executables"
	case CatWindowsBatch:
		return "Windows batch"
	case CatWindowsOffice:
		return "Office documents"
	case CatMedia:
		return "Media"
	case CatFont:
		return "Fonts"
	case CatBytecode:
		return "Bytecode"
	case CatConfig:
		return "Config"
	case CatOtherBinary:
		return "Other binaries"
	default:
		return "Unknown"
	}
}

// CategoryKey returns the stable identifier used in serialized reports.
func CategoryKey(cat FileCategory) string {
	switch cat {
	case CatSource:
		return "source_code"
	case CatLinuxShell:
		return "linux_shell"
	case CatWindowsPowerShell:
		return "win_powershell"
	case CatWindowsExecutable:
		return "win_exe"
	case CatWindowsBatch:
		return "win_bat"
	case CatWindowsOffice:
		return "win_office"
	case CatMedia:
		return "media"
	case CatFont:
		return "fonts"
	case CatBytecode:
		return "bytecode"
	case CatConfig:
		return "config"
	case CatOtherBinary:
		return "bin_other"
	default:
		return "unknown"
	}
}

// ParseCategoryKey is the inverse of CategoryKey.
func ParseCategoryKey(key string) (FileCategory, error) {
	for _, cat := range AllCategories() {
		if CategoryKey(cat) == key {
			return cat, nil
		}
	}
	return CatUnknown, fmt.Errorf("unknown file category %q", key)
}

// String implements fmt.Stringer.
func (c FileCategory) String() string {
	return CategoryKey(c)
}

// CategoryColor returns the theme color for a category.
func CategoryColor(cat FileCategory) string {
	switch cat {
	case CatSource:
		return "#61AFEF" // Blue
	case CatLinuxShell:
		return "#56B6C2" // Cyan
	case CatWindowsPowerShell:
		return "#528BFF" // Deep blue
	case CatWindowsExecutable:
		return "#D19A66" // Orange
	case CatWindowsBatch:
		return "#BE5046" // Dark red
	case CatWindowsOffice:
		return "#98C379" // Green
	case CatMedia:
		return "#E06C75" // Red
	case CatFont:
		return "#C678DD" // Purple
	case CatBytecode:
		return "#E5C07B" // Yellow
	case CatConfig:
		return "#7EC699" // Mint
	case CatOtherBinary:
		return "#A0785A" // Brown
	default:
		return "#ABB2BF" // Gray
	}
}

// NoExtension is recorded for files whose base name has no dot.
const NoExtension = "?"

// Extension returns the text after the last dot of a file's base name.
// Matching is case-sensitive and the result is not lowercased, so
// "archive.tar.gz" yields "gz" and "README" yields (NoExtension, false).
func Extension(name string) (string, bool) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:], true
		}
		if name[i] == '/' || name[i] == '\\' {
			break
		}
	}
	return NoExtension, false
}
