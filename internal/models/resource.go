package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResourceType is the host dimension a sample or alarm applies to
type ResourceType string

const (
	ResourceCPU    ResourceType = "CPU"
	ResourceMemory ResourceType = "MEMORY"
	ResourceDisk   ResourceType = "DISK"
)

// ResourceTypes lists the supported resources in canonical order
var ResourceTypes = []ResourceType{ResourceCPU, ResourceMemory, ResourceDisk}

// ParseResourceType normalizes user input ("cpu", " Memory ") to a ResourceType
func ParseResourceType(s string) (ResourceType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CPU":
		return ResourceCPU, nil
	case "MEMORY", "MEM", "RAM":
		return ResourceMemory, nil
	case "DISK":
		return ResourceDisk, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResource, s)
}

// Order returns the sort rank of the resource (CPU < MEMORY < DISK)
func (r ResourceType) Order() int {
	for i, t := range ResourceTypes {
		if t == r {
			return i
		}
	}
	return len(ResourceTypes)
}

// Label is the display form ("CPU", "Memory", "Disk")
func (r ResourceType) Label() string {
	switch r {
	case ResourceMemory:
		return "Memory"
	case ResourceDisk:
		return "Disk"
	}
	return string(r)
}

func (r ResourceType) String() string {
	return string(r)
}

// Valid reports whether r is one of the supported resources
func (r ResourceType) Valid() bool {
	return r.Order() < len(ResourceTypes)
}

// UnmarshalJSON accepts any casing so hand-edited alarm files still load.
// An unknown name is kept as is (upper-cased) and reported by Valid, so one
// bad record does not fail the whole list.
func (r *ResourceType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	rt, err := ParseResourceType(s)
	if err != nil {
		*r = ResourceType(strings.ToUpper(strings.TrimSpace(s)))
		return nil
	}
	*r = rt
	return nil
}
