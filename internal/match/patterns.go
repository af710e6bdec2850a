package match

// generalTemplates is the fallback glob template set applied to every
// application without a dedicated entry in appTemplates. "{name}" is replaced
// with the lower-cased clean application name before matching.
var generalTemplates = []string{
	"{name}*",
	"*.{name}.*",
	"com.*.{name}*",
}

// appTemplates maps lower-cased clean application names to glob templates
// for applications whose support files do not follow their display name.
var appTemplates = map[string][]string{
	"chrome": {
		"{name}*",
		"com.google.{name}*",
		"google {name}*",
	},
	"firefox": {
		"{name}*",
		"org.mozilla.{name}*",
		"*.mozilla.*",
	},
	"code": {
		"{name}*",
		"com.microsoft.vscode*",
		"visual studio {name}*",
	},
	"spotify": {
		"{name}*",
		"com.{name}.client*",
	},
}

// TemplatesFor returns the glob template list for a lower-cased clean
// application name, falling back to the general set.
func TemplatesFor(cleanName string) []string {
	if templates, ok := appTemplates[cleanName]; ok {
		return templates
	}
	return generalTemplates
}
