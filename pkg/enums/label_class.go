package enums

import "fmt"

// LabelClass buckets purchased labels for downstream printing.
type LabelClass string

const (
	LabelClassGround LabelClass = "ground"
	LabelClassOther  LabelClass = "other"
)

var validLabelClasses = []LabelClass{
	LabelClassGround,
	LabelClassOther,
}

func (l LabelClass) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LabelClass.
func (l LabelClass) IsValid() bool {
	for _, candidate := range validLabelClasses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLabelClass converts raw input into a LabelClass.
func ParseLabelClass(value string) (LabelClass, error) {
	for _, candidate := range validLabelClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid label class %q", value)
}
