package editor

import (
	"path"
	"strings"
)

// Mode identifies the editing mode applied to a buffer, keyed by file
// extension.
type Mode string

// Known modes.
const (
	ModePlain      Mode = "plaintext"
	ModeGo         Mode = "go"
	ModePython     Mode = "python"
	ModeJavaScript Mode = "javascript"
	ModeTypeScript Mode = "typescript"
	ModeMarkdown   Mode = "markdown"
	ModeJSON       Mode = "json"
	ModeYAML       Mode = "yaml"
	ModeLua        Mode = "lua"
	ModeShell      Mode = "shellscript"
	ModeHTML       Mode = "html"
	ModeCSS        Mode = "css"
)

// DetectMode returns the editing mode for a file path based on its
// extension. Unknown extensions get ModePlain.
func DetectMode(p string) Mode {
	ext := strings.ToLower(path.Ext(p))

	switch ext {
	case ".go":
		return ModeGo
	case ".py":
		return ModePython
	case ".js", ".jsx":
		return ModeJavaScript
	case ".ts", ".tsx":
		return ModeTypeScript
	case ".md", ".markdown":
		return ModeMarkdown
	case ".json":
		return ModeJSON
	case ".yaml", ".yml":
		return ModeYAML
	case ".lua":
		return ModeLua
	case ".sh", ".bash":
		return ModeShell
	case ".html", ".htm":
		return ModeHTML
	case ".css":
		return ModeCSS
	default:
		return ModePlain
	}
}
