package validator

// Validator validates structs using their tag rules.
type Validator interface {
	Validate(data any) error
}
