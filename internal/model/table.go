package model

import (
	"slices"
	"sync"
)

// classRule matches a dotted extension against one category.
type classRule struct {
	cat  FileCategory
	exts map[string]struct{}
}

// ExtensionTable maps dotted extensions to categories. Rules are tested in
// a fixed priority order and the first match wins. A table is immutable
// once built; share it by pointer.
type ExtensionTable struct {
	rules []classRule
}

// Rule order is the classification priority. Single-extension rules
// (.ps1, .exe, .bat) are exact matches.
var defaultRules = []struct {
	cat  FileCategory
	exts []string
}{
	{CatSource, []string{
		".R", ".asm", ".c", ".cc", ".clj", ".cpp", ".cs", ".css", ".dart",
		".for", ".go", ".groovy", ".h", ".hpp", ".html", ".ipynb", ".java",
		".js", ".json5", ".jsx", ".kt", ".lua", ".m", ".njs", ".pas", ".php",
		".pl", ".py", ".pyw", ".r", ".rb", ".rs", ".scala", ".sql", ".swift",
		".tcl", ".ts", ".tsx", ".v", ".vb",
	}},
	{CatLinuxShell, []string{".bash", ".csh", ".ksh", ".sh", ".tcsh", ".zsh"}},
	{CatWindowsPowerShell, []string{".ps1"}},
	{CatOtherBinary, []string{
		".a", ".aab", ".apk", ".app", ".bin", ".bz2", ".deb", ".dex", ".dll",
		".dmg", ".elf", ".gz", ".img", ".ipa", ".iso", ".msi", ".msm", ".o",
		".out", ".rpm", ".so", ".sqlite", ".sqlite3", ".tar", ".xz", ".zip",
	}},
	{CatBytecode, []string{".class", ".jar", ".pyc", ".pyd", ".pyo"}},
	{CatConfig, []string{
		".apkproject", ".cfg", ".classpath", ".code-workspace", ".csproj",
		".csv", ".dat", ".editorconfig", ".env", ".git", ".gradle", ".iml",
		".ini", ".json", ".makefile", ".project", ".properties", ".proto",
		".sln", ".toml", ".txt", ".vbproj", ".vscode", ".xcodeproj", ".xml",
		".yaml", ".yml",
	}},
	{CatMedia, []string{
		".aac", ".avi", ".bmp", ".flac", ".flv", ".gif", ".gimp", ".jpeg",
		".jpg", ".m4a", ".mkv", ".mp3", ".mp4", ".ogg", ".png", ".svg",
		".tiff", ".wav", ".webm", ".wmv",
	}},
	{CatWindowsExecutable, []string{".exe"}},
	{CatWindowsBatch, []string{".bat"}},
	{CatWindowsOffice, []string{".doc", ".docx", ".pbit", ".pbix", ".ppt", ".pptx", ".xls", ".xlsx"}},
	{CatFont, []string{".dfont", ".eot", ".otf", ".sfnt", ".ttf", ".woff", ".woff2"}},
}

// DefaultTable returns the process-wide classification table. It is built
// on first use and never modified afterwards.
var DefaultTable = sync.OnceValue(func() *ExtensionTable {
	t := &ExtensionTable{rules: make([]classRule, 0, len(defaultRules))}
	for _, r := range defaultRules {
		set := make(map[string]struct{}, len(r.exts))
		for _, ext := range r.exts {
			set[ext] = struct{}{}
		}
		t.rules = append(t.rules, classRule{cat: r.cat, exts: set})
	}
	return t
})

// Classify returns the category for an extension given without its
// leading dot, as produced by Extension.
func (t *ExtensionTable) Classify(ext string) FileCategory {
	if ext == "" || ext == NoExtension {
		return CatUnknown
	}
	dotted := "." + ext
	for _, r := range t.rules {
		if _, ok := r.exts[dotted]; ok {
			return r.cat
		}
	}
	return CatUnknown
}

// ClassifyFile extracts the extension of a base name and classifies it.
func (t *ExtensionTable) ClassifyFile(name string) FileCategory {
	ext, ok := Extension(name)
	if !ok {
		return CatUnknown
	}
	return t.Classify(ext)
}

// Extensions returns the sorted dotted extensions listed for cat.
func (t *ExtensionTable) Extensions(cat FileCategory) []string {
	var out []string
	for _, r := range t.rules {
		if r.cat != cat {
			continue
		}
		for ext := range r.exts {
			out = append(out, ext)
		}
	}
	slices.Sort(out)
	return out
}
