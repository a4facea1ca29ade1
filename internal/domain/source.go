package domain

// LabelSource represents where an emotion label was logged.
type LabelSource string

const (
	LabelSourceApp    LabelSource = "app"
	LabelSourceManual LabelSource = "manual"
)

// String returns the string representation of LabelSource.
func (s LabelSource) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s LabelSource) IsValid() bool {
	return s == LabelSourceApp || s == LabelSourceManual
}
