package templating

// TemplateConfig holds all configuration options for address rendering.
type TemplateConfig struct {
	// InlineTemplate names the template used for single-line rendering.
	InlineTemplate string `json:"inline_template"`

	// BlockTemplate names the template used when every line is rendered
	// on its own.
	BlockTemplate string `json:"block_template"`

	// WrapperClass is the base CSS class of the rendered wrapper element.
	WrapperClass string `json:"wrapper_class"`
}

// DefaultConfig returns a TemplateConfig pointing at the embedded templates.
func DefaultConfig() *TemplateConfig {
	return &TemplateConfig{
		InlineTemplate: "address_inline.tmpl.html",
		BlockTemplate:  "address_block.tmpl.html",
		WrapperClass:   "address",
	}
}
