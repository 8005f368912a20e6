package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	"R001": {
		Category: CategoryPlugin,
		Message:  "Plugin hook failed",
		Detail:   "A plugin's BeforeNavigation hook returned an error.",
		DocURL:   "https://vango.dev/docs/vroute/errors/R001",
	},
	"R002": {
		Category: CategoryRouting,
		Message:  "Invalid route pattern",
		DocURL:   "https://vango.dev/docs/vroute/errors/R002",
	},
	"R003": {
		Category: CategoryRouting,
		Message:  "Navigation failed",
		DocURL:   "https://vango.dev/docs/vroute/errors/R003",
	},
	"R004": {
		Category: CategoryConfig,
		Message:  "Invalid route manifest",
		DocURL:   "https://vango.dev/docs/vroute/errors/R004",
	},
	"R005": {
		Category: CategoryPlugin,
		Message:  "Module load failed",
		Detail:   "The lazy plugin could not fetch its module.",
		DocURL:   "https://vango.dev/docs/vroute/errors/R005",
	},
	"R006": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		DocURL:   "https://vango.dev/docs/vroute/errors/R006",
	},
	"R007": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		DocURL:   "https://vango.dev/docs/vroute/errors/R007",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
