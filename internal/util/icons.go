package util

import "github.com/sadopc/arqrel/internal/model"

// CategoryIcon returns a Unicode icon for a file category.
func CategoryIcon(cat model.FileCategory) string {
	switch cat {
	case model.CatSource:
		return "📝"
	case model.CatLinuxShell:
		return "🐚"
	case model.CatWindowsPowerShell:
		return "💠"
	case model.CatWindowsExecutable:
		return "⚙️"
	case model.CatWindowsBatch:
		return "🦇"
	case model.CatWindowsOffice:
		return "📊"
	case model.CatMedia:
		return "🎵"
	case model.CatFont:
		return "🔤"
	case model.CatBytecode:
		return "☕"
	case model.CatConfig:
		return "🔧"
	case model.CatOtherBinary:
		return "📦"
	default:
		return "📄"
	}
}
