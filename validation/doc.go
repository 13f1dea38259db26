// Package validation validates configuration structs and request input,
// returning *errors.AppError values with per-field details.
//
// Struct tags are checked with go-playground/validator:
//
//	type RouterConfig struct {
//	    MaxConcurrent int    `json:"max_concurrent" validate:"gte=1"`
//	    Language      string `json:"language" validate:"omitempty,langcode"`
//	}
//	err := validation.Validate(cfg)
//
// Request input that does not come as a struct is checked with a Validator:
//
//	v := validation.New()
//	v.OneOf("provider", name, registry.Names()).LanguageCode("language", lang)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
